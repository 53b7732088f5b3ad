package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/netutil"

	"github.com/lorendsnow/fileserver/config"
)

// Server accepts connections and runs one receive session per connection,
// each on its own goroutine. Sessions writing the same filename are not
// serialised.
type Server struct {
	cfg     config.Config
	logger  *log.Logger
	handler *Handler
	cm      *ConnectionManager

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

func NewServer(cfg config.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		handler: NewHandler(cfg.DataPath, logger),
		cm:      NewConnectionManager(),
	}
}

// Listen creates the data directory and binds the configured address.
func (s *Server) Listen() error {
	if err := os.MkdirAll(s.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("failed to create data path: %w", err)
	}

	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr is the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Active returns the number of sessions in progress.
func (s *Server) Active() int {
	return s.cm.Active()
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the accept loop until ctx is cancelled, then closes the
// listener and every open connection and waits for the handlers.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server is not listening")
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-stop:
		}
	}()

	s.logger.Debug("File server started", "addr", ln.Addr().String(), "data_path", s.cfg.DataPath)

	var err error
	var delay time.Duration
	for {
		conn, aerr := ln.Accept()
		if aerr != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(aerr, net.ErrClosed) {
				err = aerr
				break
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > time.Second {
				delay = time.Second
			}
			s.logger.Error("accept failed", "err", aerr, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		c := s.cm.NewConnection(conn, s.cfg.ReadTimeout.Duration)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer c.Close()
			s.handler.Handle(c)
		}()
	}

	ln.Close()
	s.cm.CloseAll()
	s.wg.Wait()
	s.logger.Debug("File server stopped")
	return err
}
