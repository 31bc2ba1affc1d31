package connection

import (
	"context"
	"testing"

	"github.com/ajitpratap0/kvlink-go/pkg/protocol"
)

func benchManager(b *testing.B) (*Manager, *protocol.TestServer) {
	b.Helper()
	server, err := protocol.StartTestServer("")
	if err != nil {
		b.Fatalf("start server: %v", err)
	}
	m, err := Connect(context.Background(), testConfig(server))
	if err != nil {
		server.Close()
		b.Fatalf("connect: %v", err)
	}
	return m, server
}

func BenchmarkManagerPing(b *testing.B) {
	m, server := benchManager(b)
	defer server.Close()
	defer m.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := m.Ping(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkManagerSetGet(b *testing.B) {
	m, server := benchManager(b)
	defer server.Close()
	defer m.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := m.Set(ctx, "bench", "value"); err != nil {
			b.Fatal(err)
		}
		if _, _, err := m.Get(ctx, "bench"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkManagerPipelined(b *testing.B) {
	m, server := benchManager(b)
	defer server.Close()
	defer m.Close()

	ctx := context.Background()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := m.Incr(ctx, "counter"); err != nil {
				b.Fatal(err)
			}
		}
	})
}
