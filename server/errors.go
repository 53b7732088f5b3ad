package server

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected     = errors.New("no connection to the server has been made")
	ErrConnectionUsed   = errors.New("connection already carried a transfer")
	ErrNotRegularFile   = errors.New("not a regular file")
	ErrHeaderTooLarge   = errors.New("header too large")
	ErrUnsafeFilename   = errors.New("unsafe filename")
	ErrMissingSeparator = errors.New("missing separator")
)

// ConnectionError reports a channel that could not be established or used.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("couldn't connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// HeaderParseError reports a malformed or missing transfer header.
type HeaderParseError struct {
	Header string
	Reason string
	Err    error
}

func (e *HeaderParseError) Error() string {
	if e.Header == "" {
		return fmt.Sprintf("invalid header: %s", e.Reason)
	}
	return fmt.Sprintf("invalid header %q: %s", e.Header, e.Reason)
}

func (e *HeaderParseError) Unwrap() error { return e.Err }

// FileAccessError reports a source file that cannot be sent. Use
// errors.Is with fs.ErrNotExist or fs.ErrPermission to tell them apart.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("failed to access file '%s': %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// TransferError reports a stream that broke after the header was sent
// or parsed. Bytes is how much payload made it across.
type TransferError struct {
	Filename string
	Bytes    int64
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s aborted after %d bytes: %v", e.Filename, e.Bytes, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// FileWriteError reports a destination file that could not be created
// or written.
type FileWriteError struct {
	Path string
	Err  error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write file '%s': %v", e.Path, e.Err)
}

func (e *FileWriteError) Unwrap() error { return e.Err }
