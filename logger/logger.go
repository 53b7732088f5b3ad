package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lorendsnow/fileserver/config"
)

const TimeFormat = "2006-01-02 15:04:05"

// New returns a leveled logger writing to w with the given prefix.
func New(name string, w io.Writer, level, format string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	formatter, err := parseFormatter(format)
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{
		Prefix:          name,
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Formatter:       formatter,
	}), nil
}

func parseFormatter(format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return 0, fmt.Errorf("invalid log format %q", format)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the named logger from cfg. With LOG_FILE set, output is
// appended to that file, which the returned Closer closes; otherwise it
// goes to stderr.
func Open(name string, cfg config.Config) (*log.Logger, io.Closer, error) {
	if cfg.LogFile == "" {
		l, err := New(name, os.Stderr, cfg.LogLevel, cfg.LogFormat)
		return l, nopCloser{}, err
	}

	if dir := filepath.Dir(cfg.LogFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l, err := New(name, f, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return l, f, nil
}
