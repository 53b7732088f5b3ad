package server

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Header announces the payload that follows it on the wire.
//
// Its text form is "<size><SEPARATOR><name>". On the wire the text is
// preceded by a 4-byte big-endian length, so a receiver never depends on
// how the peer's writes were split into segments.
type Header struct {
	Size int64
	Name string
}

func (h Header) String() string {
	return fmt.Sprintf("%s (%d bytes)", h.Name, h.Size)
}

// EncodeHeader returns the text form of a header.
func EncodeHeader(size int64, name string) []byte {
	return []byte(strconv.FormatInt(size, 10) + SEPARATOR + name)
}

// DecodeHeader parses the text form of a header. It splits on the first
// separator only: the size field is all digits, so any later separator
// belongs to the filename.
func DecodeHeader(raw []byte) (Header, error) {
	text := string(raw)

	sizeField, name, found := strings.Cut(text, SEPARATOR)
	if !found {
		return Header{}, &HeaderParseError{Header: text, Reason: "missing separator", Err: ErrMissingSeparator}
	}

	size, err := parseSize(sizeField)
	if err != nil {
		return Header{}, &HeaderParseError{Header: text, Reason: err.Error(), Err: err}
	}

	if name == "" {
		return Header{}, &HeaderParseError{Header: text, Reason: "empty filename"}
	}
	if !utf8.ValidString(name) {
		return Header{}, &HeaderParseError{Header: text, Reason: "filename is not valid UTF-8"}
	}

	return Header{Size: size, Name: name}, nil
}

func parseSize(field string) (int64, error) {
	if field == "" {
		return 0, errors.New("empty filesize")
	}
	if field[0] == '-' {
		return 0, errors.New("negative filesize")
	}
	for _, c := range field {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("filesize %q is not a number", field)
		}
	}

	size, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("filesize out of range: %w", err)
	}
	return size, nil
}

// WriteHeader writes the length prefix and header text in a single Write.
func WriteHeader(w io.Writer, h Header) error {
	body := EncodeHeader(h.Size, h.Name)
	if len(body) > MAX_HEADER_SIZE {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrHeaderTooLarge, len(body), MAX_HEADER_SIZE)
	}

	frame := make([]byte, HEADER_PREFIX_SIZE+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[HEADER_PREFIX_SIZE:], body)

	_, err := w.Write(frame)
	return err
}

// ReadHeader reads one framed header. Read failures are reported as
// *HeaderParseError wrapping the underlying error.
func ReadHeader(r io.Reader) (Header, error) {
	prefix := make([]byte, HEADER_PREFIX_SIZE)
	if _, err := io.ReadFull(r, prefix); err != nil {
		reason := "failed to read header length"
		if errors.Is(err, io.EOF) {
			reason = "connection closed before header"
		}
		return Header{}, &HeaderParseError{Reason: reason, Err: err}
	}

	n := binary.BigEndian.Uint32(prefix)
	if n > MAX_HEADER_SIZE {
		return Header{}, &HeaderParseError{
			Reason: fmt.Sprintf("header length %d exceeds %d", n, MAX_HEADER_SIZE),
			Err:    ErrHeaderTooLarge,
		}
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Header{}, &HeaderParseError{Reason: "truncated header", Err: err}
	}

	return DecodeHeader(body)
}
