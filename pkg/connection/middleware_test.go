package connection

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	kverrors "github.com/ajitpratap0/kvlink-go/pkg/errors"
	"github.com/ajitpratap0/kvlink-go/pkg/observability"
	"github.com/ajitpratap0/kvlink-go/pkg/protocol"
)

// flakyExecutor fails with the scripted error a fixed number of times before
// succeeding.
type flakyExecutor struct {
	failures int
	err      error
	calls    int
}

func (f *flakyExecutor) Do(ctx context.Context, command string, args ...[]byte) (protocol.Reply, error) {
	f.calls++
	if f.calls <= f.failures {
		return protocol.Reply{}, f.err
	}
	return protocol.Reply{Type: protocol.SimpleStringReply, Str: "PONG"}, nil
}

func fastReliability(maxRetries int) ReliabilityConfig {
	return ReliabilityConfig{
		InitialRetryInterval: time.Millisecond,
		MaxRetryInterval:     5 * time.Millisecond,
		RetryGrowthFactor:    1.5,
		MaxCommandRetries:    maxRetries,
	}
}

func TestReliabilityRetriesTransientFailure(t *testing.T) {
	exec := &flakyExecutor{failures: 2, err: kverrors.NewNotConnected("PING")}
	m := NewReliabilityMiddleware(fastReliability(3), nil)

	reply, err := m.Wrap(exec).Do(context.Background(), "PING")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if reply.Str != "PONG" {
		t.Errorf("Unexpected reply %+v", reply)
	}
	if exec.calls != 3 {
		t.Errorf("Executor called %d times, want 3", exec.calls)
	}
}

func TestReliabilityDoesNotRetryPermanentFailure(t *testing.T) {
	exec := &flakyExecutor{failures: 10, err: kverrors.NewCommandFailed("GET", "WRONGTYPE")}
	m := NewReliabilityMiddleware(fastReliability(3), nil)

	_, err := m.Wrap(exec).Do(context.Background(), "GET", []byte("k"))
	if !kverrors.IsCode(err, kverrors.CodeCommandFailed) {
		t.Fatalf("Expected the original failure, got %v", err)
	}
	if exec.calls != 1 {
		t.Errorf("Executor called %d times, want 1", exec.calls)
	}
}

func TestReliabilityExhaustsRetries(t *testing.T) {
	exec := &flakyExecutor{failures: 10, err: kverrors.NewNotConnected("PING")}
	m := NewReliabilityMiddleware(fastReliability(2), nil)

	_, err := m.Wrap(exec).Do(context.Background(), "PING")
	if !kverrors.IsCode(err, kverrors.CodeRetryExhausted) {
		t.Fatalf("Expected retry exhaustion, got %v", err)
	}
	if exec.calls != 3 {
		t.Errorf("Executor called %d times, want 3 (initial + 2 retries)", exec.calls)
	}

	kvErr, _ := kverrors.AsKVError(err)
	if !kverrors.IsCode(kvErr.Unwrap(), kverrors.CodeNotConnected) {
		t.Errorf("Exhaustion error must carry the last cause, got %v", kvErr.Unwrap())
	}
}

func TestReliabilityHonorsContext(t *testing.T) {
	exec := &flakyExecutor{failures: 100, err: kverrors.NewNotConnected("PING")}
	config := fastReliability(50)
	config.InitialRetryInterval = 50 * time.Millisecond
	m := NewReliabilityMiddleware(config, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Wrap(exec).Do(ctx, "PING")
	if err != context.DeadlineExceeded {
		t.Fatalf("Expected context deadline, got %v", err)
	}
}

func TestObservabilityRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(observability.MetricsConfig{Registry: registry})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m := NewObservabilityMiddleware(ObservabilityConfig{Metrics: metrics}, nil)

	exec := &flakyExecutor{failures: 1, err: kverrors.NewNotConnected("PING")}
	wrapped := m.Wrap(exec)

	if _, err := wrapped.Do(context.Background(), "PING"); err == nil {
		t.Fatal("Expected the scripted failure")
	}
	if _, err := wrapped.Do(context.Background(), "PING"); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "kvlink_commands_total" {
			found = true
			if len(family.GetMetric()) != 2 {
				t.Errorf("Expected ok and error series, got %d", len(family.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("kvlink_commands_total was not recorded")
	}
}

func TestObservabilityCreatesSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	m := NewObservabilityMiddleware(ObservabilityConfig{Tracer: provider.Tracer("test")}, nil)

	exec := &flakyExecutor{failures: 1, err: kverrors.NewNotConnected("PING")}
	wrapped := m.Wrap(exec)

	if _, err := wrapped.Do(context.Background(), "PING"); err == nil {
		t.Fatal("Expected the scripted failure")
	}
	if _, err := wrapped.Do(context.Background(), "PING"); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}

	failed, succeeded := spans[0], spans[1]
	if failed.Name() != "kvlink.command" {
		t.Errorf("Span name = %q, want kvlink.command", failed.Name())
	}
	if failed.Status().Code != codes.Error {
		t.Errorf("Failed command span status = %v, want Error", failed.Status().Code)
	}
	if succeeded.Status().Code == codes.Error {
		t.Error("Successful command span must not carry an error status")
	}

	operation := attribute.String("db.operation", "PING")
	found := false
	for _, attr := range failed.Attributes() {
		if attr == operation {
			found = true
		}
	}
	if !found {
		t.Errorf("Span attributes %v missing %v", failed.Attributes(), operation)
	}
}

func TestObservabilityWithoutSinks(t *testing.T) {
	m := NewObservabilityMiddleware(ObservabilityConfig{}, nil)
	exec := &flakyExecutor{}

	reply, err := m.Wrap(exec).Do(context.Background(), "PING")
	if err != nil {
		t.Fatalf("Nil sinks must be safe, got %v", err)
	}
	if reply.Str != "PONG" {
		t.Errorf("Unexpected reply %+v", reply)
	}
}

func TestChainOrdering(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return middlewareFunc(func(next protocol.Executor) protocol.Executor {
			return ExecutorFunc(func(ctx context.Context, command string, args ...[]byte) (protocol.Reply, error) {
				order = append(order, name)
				return next.Do(ctx, command, args...)
			})
		})
	}

	exec := &flakyExecutor{}
	chained := ChainMiddleware(tag("outer"), tag("inner")).Wrap(exec)

	if _, err := chained.Do(context.Background(), "PING"); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("Middleware ran in order %v, want [outer inner]", order)
	}
}

func TestEmptyChainIsPassThrough(t *testing.T) {
	exec := &flakyExecutor{}
	if got := ChainMiddleware().Wrap(exec); got != protocol.Executor(exec) {
		t.Error("Empty chain must return the executor unchanged")
	}
}

type middlewareFunc func(next protocol.Executor) protocol.Executor

func (f middlewareFunc) Wrap(next protocol.Executor) protocol.Executor { return f(next) }
