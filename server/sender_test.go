package server_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/lorendsnow/fileserver/server"
)

func writeSource(t *testing.T, dir, name string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return data
}

type failingWriter struct {
	okWrites int
	writes   int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.writes >= w.okWrites {
		return 0, errors.New("broken pipe")
	}
	w.writes++
	return len(p), nil
}

func TestSendFileChunks(t *testing.T) {
	sizes := []int{0, 1, 1023, 1024, 1025, 3000, 10000}

	for _, size := range sizes {
		dir := t.TempDir()
		data := writeSource(t, dir, "data.bin", size)

		w := &recordingWriter{}
		n, err := server.SendFile(w, dir, "data.bin", nil)
		if err != nil {
			t.Fatalf("size %d: SendFile: %v", size, err)
		}
		if n != int64(size) {
			t.Errorf("size %d: sent %d", size, n)
		}

		h, err := server.ReadHeader(bytes.NewReader(w.writes[0]))
		if err != nil {
			t.Fatalf("size %d: header: %v", size, err)
		}
		if h.Size != int64(size) || h.Name != "data.bin" {
			t.Errorf("size %d: header %v", size, h)
		}

		chunks := w.writes[1:]
		want := (size + server.CHUNK_SIZE - 1) / server.CHUNK_SIZE
		if len(chunks) != want {
			t.Errorf("size %d: %d chunks, want %d", size, len(chunks), want)
		}

		var payload []byte
		for _, c := range chunks {
			if len(c) > server.CHUNK_SIZE {
				t.Errorf("size %d: chunk of %d bytes", size, len(c))
			}
			payload = append(payload, c...)
		}
		if !bytes.Equal(payload, data) {
			t.Errorf("size %d: payload differs from source", size)
		}
	}
}

func TestSendFileProgress(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "report.pdf", 2500)

	type update struct {
		sent, total int64
		label       string
	}
	var updates []update
	progress := server.ProgressFunc(func(sent, total int64, label string) {
		updates = append(updates, update{sent, total, label})
	})

	if _, err := server.SendFile(io.Discard, dir, "report.pdf", progress); err != nil {
		t.Fatalf("SendFile: %v", err)
	}

	want := []update{{0, 2500, "report.pdf"}, {1024, 2500, "report.pdf"}, {2048, 2500, "report.pdf"}, {2500, 2500, "report.pdf"}}
	if len(updates) != len(want) {
		t.Fatalf("got %d updates, want %d: %v", len(updates), len(want), updates)
	}
	for i := range want {
		if updates[i] != want[i] {
			t.Errorf("update %d = %v, want %v", i, updates[i], want[i])
		}
	}
}

func TestSendFileAccessErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "folder"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		filename string
		target   error
	}{
		{name: "missing", filename: "nope.txt", target: fs.ErrNotExist},
		{name: "directory", filename: "folder", target: server.ErrNotRegularFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &recordingWriter{}
			_, err := server.SendFile(w, dir, tt.filename, nil)
			var fae *server.FileAccessError
			if !errors.As(err, &fae) {
				t.Fatalf("expected *FileAccessError, got %v", err)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
			if len(w.writes) != 0 {
				t.Errorf("nothing should be written, got %d writes", len(w.writes))
			}
		})
	}

	t.Run("permission", func(t *testing.T) {
		if os.Getuid() == 0 {
			t.Skip("root can read any file")
		}
		writeSource(t, dir, "secret.txt", 10)
		if err := os.Chmod(filepath.Join(dir, "secret.txt"), 0); err != nil {
			t.Fatal(err)
		}
		_, err := server.SendFile(io.Discard, dir, "secret.txt", nil)
		if !errors.Is(err, fs.ErrPermission) {
			t.Errorf("expected fs.ErrPermission, got %v", err)
		}
	})
}

func TestSendFileWriteFailures(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "big.bin", 5000)

	t.Run("header", func(t *testing.T) {
		_, err := server.SendFile(&failingWriter{okWrites: 0}, dir, "big.bin", nil)
		var ce *server.ConnectionError
		if !errors.As(err, &ce) {
			t.Fatalf("expected *ConnectionError, got %v", err)
		}
	})

	t.Run("payload", func(t *testing.T) {
		n, err := server.SendFile(&failingWriter{okWrites: 3}, dir, "big.bin", nil)
		var te *server.TransferError
		if !errors.As(err, &te) {
			t.Fatalf("expected *TransferError, got %v", err)
		}
		if te.Filename != "big.bin" || te.Bytes != 2048 || n != 2048 {
			t.Errorf("got filename %q bytes %d n %d", te.Filename, te.Bytes, n)
		}
	})
}

func TestClientWithoutConnection(t *testing.T) {
	var buf bytes.Buffer
	client := server.NewClient(t.TempDir(), "127.0.0.1:1", server.WithLogger(log.New(&buf)))

	if _, err := client.SendFile("x.txt"); !errors.Is(err, server.ErrNotConnected) {
		t.Errorf("SendFile: expected ErrNotConnected, got %v", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Errorf("Disconnect: %v", err)
	}
	if !strings.Contains(buf.String(), server.ErrNotConnected.Error()) {
		t.Errorf("expected a warning in the log, got %q", buf.String())
	}
}

func TestClientConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := server.NewClient(t.TempDir(), addr)
	err = client.Connect(context.Background())
	var ce *server.ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if ce.Addr != addr {
		t.Errorf("Addr = %q, want %q", ce.Addr, addr)
	}
	if client.Connected() {
		t.Error("client should not report a connection")
	}
}

func TestClientOneFilePerConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				io.Copy(io.Discard, conn)
			}()
		}
	}()

	dir := t.TempDir()
	writeSource(t, dir, "a.txt", 100)
	client := server.NewClient(dir, ln.Addr().String())

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := client.SendFile("a.txt"); err != nil {
		t.Fatalf("first SendFile: %v", err)
	}
	if _, err := client.SendFile("a.txt"); !errors.Is(err, server.ErrConnectionUsed) {
		t.Errorf("second SendFile: expected ErrConnectionUsed, got %v", err)
	}

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if _, err := client.SendFile("a.txt"); err != nil {
		t.Errorf("SendFile after reconnect: %v", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Errorf("Disconnect: %v", err)
	}
}
