package server_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/lorendsnow/fileserver/server"
)

func TestConnectionHandling(t *testing.T) {
	cm := server.NewConnectionManager()

	t.Run("read_timeout", func(t *testing.T) {
		client, sv := net.Pipe()
		defer client.Close()
		defer sv.Close()

		conn := cm.NewConnection(sv, 100*time.Millisecond)
		defer conn.Close()

		_, err := conn.Read(make([]byte, 1))
		var ne net.Error
		if !errors.As(err, &ne) || !ne.Timeout() {
			t.Errorf("Expected timeout error, got: %v", err)
		}
	})

	t.Run("no_timeout", func(t *testing.T) {
		client, sv := net.Pipe()
		defer client.Close()

		conn := cm.NewConnection(sv, 0)
		defer conn.Close()

		go func() {
			time.Sleep(150 * time.Millisecond)
			client.Write([]byte("x"))
		}()

		buf := make([]byte, 1)
		if n, err := conn.Read(buf); err != nil || n != 1 {
			t.Errorf("Read = %d, %v", n, err)
		}
	})
}

func TestConnectionManager(t *testing.T) {
	cm := server.NewConnectionManager()

	a1, a2 := net.Pipe()
	b1, b2 := net.Pipe()
	defer a2.Close()
	defer b2.Close()

	a := cm.NewConnection(a1, 0)
	b := cm.NewConnection(b1, 0)
	if got := cm.Active(); got != 2 {
		t.Fatalf("Active = %d, want 2", got)
	}

	a.Close()
	if got := cm.Active(); got != 1 {
		t.Errorf("Active after Close = %d, want 1", got)
	}
	select {
	case <-a.Done():
	default:
		t.Error("Done should be closed after Close")
	}

	cm.CloseAll()
	if got := cm.Active(); got != 0 {
		t.Errorf("Active after CloseAll = %d, want 0", got)
	}
	if _, err := b.Read(make([]byte, 1)); err == nil {
		t.Error("Read on a closed connection should fail")
	}

	c1, c2 := net.Pipe()
	defer c2.Close()
	c := cm.NewConnection(c1, 0)
	if got := cm.Active(); got != 0 {
		t.Errorf("connection registered after CloseAll, Active = %d", got)
	}
	if _, err := c.Read(make([]byte, 1)); err == nil {
		t.Error("connection created after CloseAll should be closed")
	}
}

func TestDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()

	conn, err := server.Dial(context.Background(), addr, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn.Close()
	ln.Close()

	_, err = server.Dial(context.Background(), addr, time.Second)
	var ce *server.ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if ce.Addr != addr {
		t.Errorf("Addr = %q, want %q", ce.Addr, addr)
	}
}
