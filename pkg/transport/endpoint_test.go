package transport

import (
	"context"
	"net"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	kverrors "github.com/ajitpratap0/kvlink-go/pkg/errors"
)

func TestEndpointValidate(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		wantErr  bool
	}{
		{"tcp", TCP("localhost", 6379), false},
		{"unix", Unix("/tmp/kv.sock"), false},
		{"zero value", Endpoint{}, true},
		{"missing host", TCP("", 6379), true},
		{"port zero", TCP("localhost", 0), true},
		{"port negative", TCP("localhost", -1), true},
		{"port too large", TCP("localhost", 70000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.endpoint.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEndpointNetworkAddress(t *testing.T) {
	tcp := TCP("localhost", 6379)
	if tcp.Network() != "tcp" {
		t.Errorf("Expected network tcp, got %s", tcp.Network())
	}
	if tcp.Address() != "localhost:6379" {
		t.Errorf("Expected address localhost:6379, got %s", tcp.Address())
	}

	unix := Unix("/tmp/kv.sock")
	if unix.Network() != "unix" {
		t.Errorf("Expected network unix, got %s", unix.Network())
	}
	if unix.Address() != "/tmp/kv.sock" {
		t.Errorf("Expected address /tmp/kv.sock, got %s", unix.Address())
	}
	if !unix.IsUnix() || tcp.IsUnix() {
		t.Error("IsUnix misreported endpoint form")
	}
}

func TestEndpointString(t *testing.T) {
	if got := TCP("localhost", 6379).String(); got != "tcp(localhost:6379)" {
		t.Errorf("Unexpected String(): %s", got)
	}
	if got := Unix("/tmp/kv.sock").String(); got != "unix(/tmp/kv.sock)" {
		t.Errorf("Unexpected String(): %s", got)
	}
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start listener: %v", err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	endpoint := TCP("127.0.0.1", addr.Port)

	conn, err := Dialer{Timeout: time.Second}.Dial(context.Background(), endpoint)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if conn.RemoteAddr().String() != ln.Addr().String() {
		t.Errorf("Connected to %s, expected %s", conn.RemoteAddr(), ln.Addr())
	}
}

func TestDialUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets not supported on windows")
	}

	socketPath := filepath.Join(t.TempDir(), "kv.sock")
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("Failed to start unix listener: %v", err)
	}
	defer ln.Close()

	conn, err := Dialer{Timeout: time.Second}.Dial(context.Background(), Unix(socketPath))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	conn.Close()
}

func TestDialRefusedIsRetryable(t *testing.T) {
	// Grab a port that nothing is listening on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start listener: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = Dialer{Timeout: time.Second}.Dial(context.Background(), TCP("127.0.0.1", port))
	if err == nil {
		t.Fatal("Expected dial to fail")
	}
	if !kverrors.IsRetryable(err) {
		t.Errorf("Dial failure should be retryable, got %v", err)
	}
	if !kverrors.IsCode(err, kverrors.CodeConnectionFailed) {
		t.Errorf("Expected CodeConnectionFailed, got %v", err)
	}
}

func TestDialInvalidEndpoint(t *testing.T) {
	_, err := Dialer{}.Dial(context.Background(), Endpoint{})
	if err == nil {
		t.Fatal("Expected error for invalid endpoint")
	}
	if kverrors.IsRetryable(err) {
		t.Error("Validation failures must not be retryable")
	}
}

func TestDialCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dialer{}.Dial(ctx, TCP("127.0.0.1", 6379))
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
