package server

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Client sends files from a base directory to one receiver. A connection
// carries exactly one file; call Connect again for the next one.
type Client struct {
	basePath    string
	addr        string
	dialTimeout time.Duration
	progress    ProgressReporter
	logger      *log.Logger

	mu   sync.Mutex
	conn *Connection
	used bool
}

type ClientOption func(*Client)

func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

func WithProgress(p ProgressReporter) ClientOption {
	return func(c *Client) { c.progress = p }
}

func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialTimeout = d }
}

func NewClient(basePath, addr string, opts ...ClientOption) *Client {
	c := &Client{
		basePath:    basePath,
		addr:        addr,
		dialTimeout: 5 * time.Second,
		progress:    NopProgress,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

func (c *Client) Addr() string { return c.addr }

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SetProgress replaces the reporter used by the next SendFile.
func (c *Client) SetProgress(p ProgressReporter) {
	if p == nil {
		p = NopProgress
	}
	c.mu.Lock()
	c.progress = p
	c.mu.Unlock()
}

// Connect dials the receiver. An existing connection is closed first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := Dial(ctx, c.addr, c.dialTimeout)
	if err != nil {
		c.logger.Error("couldn't connect to server", "addr", c.addr, "err", err)
		return err
	}

	c.conn = conn
	c.used = false
	c.logger.Info("connected", "local", conn.LocalAddr().String(), "remote", c.addr)
	return nil
}

// SendFile sends one file over the current connection.
func (c *Client) SendFile(filename string) (int64, error) {
	c.mu.Lock()
	conn, used := c.conn, c.used
	c.used = true
	progress := c.progress
	c.mu.Unlock()

	if conn == nil {
		return 0, ErrNotConnected
	}
	if used {
		return 0, ErrConnectionUsed
	}

	n, err := SendFile(conn, c.basePath, filename, progress)
	if err != nil {
		c.logger.Error("send failed", "file", filename, "sent", n, "err", err)
		return n, err
	}

	c.logger.Info(filename+" sent successfully", "bytes", n)
	return n, nil
}

// Disconnect closes the connection. Without one it only logs a warning.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		c.logger.Warn(ErrNotConnected.Error())
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

// Abort closes the connection under a running SendFile, which then fails
// with *TransferError. The client still needs Disconnect afterwards.
func (c *Client) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Conn.Close()
	}
}
