package server

import (
	"context"
	"net"
	"sync"
	"time"
)

// ConnectionManager tracks the connections a Server is currently serving.
type ConnectionManager struct {
	activeConns sync.Map
	mu          sync.RWMutex
	closed      bool
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{}
}

// Connection is a net.Conn with an optional idle read deadline. Every
// Read pushes the deadline forward by readTimeout; zero disables it.
type Connection struct {
	net.Conn
	key         string
	readTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	cm          *ConnectionManager
}

func newConnection(conn net.Conn, readTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		Conn:        conn,
		key:         generateID(),
		readTimeout: readTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// NewConnection registers conn. If the manager has already been shut
// down the connection is closed immediately and reads fail.
func (cm *ConnectionManager) NewConnection(conn net.Conn, readTimeout time.Duration) *Connection {
	c := newConnection(conn, readTimeout)
	c.cm = cm

	cm.mu.RLock()
	closed := cm.closed
	if !closed {
		cm.activeConns.Store(c.key, c)
	}
	cm.mu.RUnlock()

	if closed {
		c.Close()
	}
	return c
}

// Active returns the number of registered connections.
func (cm *ConnectionManager) Active() int {
	n := 0
	cm.activeConns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CloseAll closes every registered connection and rejects new ones.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	cm.closed = true
	cm.mu.Unlock()

	cm.activeConns.Range(func(_, v any) bool {
		v.(*Connection).Close()
		return true
	})
}

func (c *Connection) Read(p []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *Connection) Close() error {
	c.cancel()
	if c.cm != nil {
		c.cm.activeConns.Delete(c.key)
	}
	return c.Conn.Close()
}

// Done is closed once the connection has been closed.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Dial opens a TCP connection to addr. A failure is always returned as
// *ConnectionError; no half-open Connection is handed back.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Connection, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	return newConnection(conn, 0), nil
}
