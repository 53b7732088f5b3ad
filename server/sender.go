package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
)

// ProgressReporter receives sender progress after the header and after
// every chunk.
type ProgressReporter interface {
	Report(sent, total int64, label string)
}

// ProgressFunc adapts a plain function to ProgressReporter.
type ProgressFunc func(sent, total int64, label string)

func (f ProgressFunc) Report(sent, total int64, label string) {
	f(sent, total, label)
}

type nopProgress struct{}

func (nopProgress) Report(int64, int64, string) {}

var NopProgress ProgressReporter = nopProgress{}

// SendFile streams basePath/filename to w: one framed header write, then
// one write per chunk of at most CHUNK_SIZE bytes. It returns the number
// of payload bytes written. Nothing is read back from w.
func SendFile(w io.Writer, basePath, filename string, progress ProgressReporter) (int64, error) {
	if progress == nil {
		progress = NopProgress
	}

	path, size, err := resolveFile(basePath, filename)
	if err != nil {
		return 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, &FileAccessError{Path: path, Err: err}
	}
	defer file.Close()

	if err := WriteHeader(w, Header{Size: size, Name: filename}); err != nil {
		if errors.Is(err, ErrHeaderTooLarge) {
			return 0, err
		}
		return 0, &ConnectionError{Addr: peerName(w), Err: fmt.Errorf("failed to send header: %w", err)}
	}
	progress.Report(0, size, filename)

	sent, err := copyChunks(w, io.LimitReader(file, size), size, filename, progress)
	if err != nil {
		return sent, err
	}
	if sent < size {
		return sent, &TransferError{Filename: filename, Bytes: sent, Err: io.ErrUnexpectedEOF}
	}
	return sent, nil
}

func resolveFile(basePath, filename string) (string, int64, error) {
	path, err := filepath.Abs(filepath.Join(basePath, filename))
	if err != nil {
		return "", 0, &FileAccessError{Path: filename, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, &FileAccessError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", 0, &FileAccessError{Path: path, Err: ErrNotRegularFile}
	}
	return path, info.Size(), nil
}

func copyChunks(w io.Writer, src io.Reader, total int64, label string, progress ProgressReporter) (int64, error) {
	buffer := make([]byte, CHUNK_SIZE)
	var sent int64

	for {
		n, err := src.Read(buffer)
		if n > 0 {
			if _, werr := w.Write(buffer[:n]); werr != nil {
				return sent, &TransferError{Filename: label, Bytes: sent, Err: fmt.Errorf("error sending file data: %w", werr)}
			}
			sent += int64(n)
			progress.Report(sent, total, label)
		}
		if err == io.EOF {
			return sent, nil
		}
		if err != nil {
			return sent, &TransferError{Filename: label, Bytes: sent, Err: fmt.Errorf("error reading file: %w", err)}
		}
	}
}

func peerName(w io.Writer) string {
	if c, ok := w.(interface{ RemoteAddr() net.Addr }); ok && c.RemoteAddr() != nil {
		return c.RemoteAddr().String()
	}
	return "stream"
}
