package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Stream is the byte stream a session runs over. net.Conn and
// *Connection satisfy it.
type Stream interface {
	io.ReadWriter
	RemoteAddr() net.Addr
}

// Session is one accepted connection carrying one file.
type Session struct {
	ID         string
	RemoteAddr string
	Header     Header
	Path       string
	Received   int64
	State      TransferState
	Started    time.Time
	Err        error
}

func NewSession(remote string) *Session {
	return &Session{
		ID:         generateID(),
		RemoteAddr: remote,
		State:      StateAwaitingHeader,
		Started:    time.Now(),
	}
}

func (s *Session) fail(err error) error {
	s.State = StateFailed
	s.Err = err
	return err
}

// Receive reads one header from conn and then exactly Header.Size bytes
// into destDir/Header.Name, advancing sess through the session states.
// The destination file is truncated if it exists. On a broken stream the
// bytes already received stay on disk.
func Receive(conn io.Reader, destDir string, sess *Session) error {
	if sess.State != StateAwaitingHeader {
		return fmt.Errorf("session %s is %s, not %s", sess.ID, sess.State, StateAwaitingHeader)
	}

	h, err := ReadHeader(conn)
	if err != nil {
		return sess.fail(err)
	}
	sess.Header = h
	sess.State = StateHeaderParsed

	path, err := destinationPath(destDir, h.Name)
	if err != nil {
		return sess.fail(err)
	}
	sess.Path = path

	file, err := createDestination(path)
	if err != nil {
		return sess.fail(err)
	}
	defer file.Close()

	sess.State = StateReceivingPayload
	if err := receivePayload(conn, file, sess); err != nil {
		return sess.fail(err)
	}

	if err := file.Close(); err != nil {
		return sess.fail(&FileWriteError{Path: path, Err: err})
	}
	sess.State = StateComplete
	return nil
}

func destinationPath(destDir, name string) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", &HeaderParseError{Header: name, Reason: "unsafe filename", Err: ErrUnsafeFilename}
	}
	return filepath.Join(destDir, rel), nil
}

func createDestination(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &FileWriteError{Path: path, Err: err}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, &FileWriteError{Path: path, Err: err}
	}
	return file, nil
}

func receivePayload(conn io.Reader, file io.Writer, sess *Session) error {
	buffer := make([]byte, CHUNK_SIZE)
	size := sess.Header.Size

	for sess.Received < size {
		want := int64(len(buffer))
		if remaining := size - sess.Received; remaining < want {
			want = remaining
		}

		n, err := conn.Read(buffer[:want])
		if n > 0 {
			if _, werr := file.Write(buffer[:n]); werr != nil {
				return &FileWriteError{Path: sess.Path, Err: werr}
			}
			sess.Received += int64(n)
		}
		if err != nil {
			if sess.Received >= size {
				break
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return &TransferError{Filename: sess.Header.Name, Bytes: sess.Received, Err: err}
		}
	}
	return nil
}

// Handler serves sessions for an accept loop. Every failure is logged
// and the session abandoned; Handle never panics.
type Handler struct {
	DestDir string
	Logger  *log.Logger
}

func NewHandler(destDir string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{DestDir: destDir, Logger: logger}
}

func (h *Handler) Handle(conn Stream) *Session {
	sess := NewSession(conn.RemoteAddr().String())
	logger := h.Logger.With("session", sess.ID, "remote", sess.RemoteAddr)
	logger.Debug("connected")

	defer func() {
		if r := recover(); r != nil {
			sess.fail(fmt.Errorf("unexpected error: %v", r))
			logger.Error("session aborted", "err", sess.Err)
		}
	}()

	if err := Receive(conn, h.DestDir, sess); err != nil {
		var hpe *HeaderParseError
		if errors.As(err, &hpe) {
			logger.Error("error while parsing header", "err", err)
		} else {
			logger.Error("error while receiving file", "file", sess.Header.Name, "received", sess.Received, "err", err)
		}
		return sess
	}

	logger.Debug(sess.Header.Name+" successfully received",
		"path", filepath.ToSlash(sess.Path),
		"bytes", sess.Received,
		"speed", fmt.Sprintf("%.2f MB/s", mbPerSecond(sess.Received, sess.Started)),
	)
	return sess
}
