package protocol

import (
	"context"
	"strings"
	"testing"

	kverrors "github.com/ajitpratap0/kvlink-go/pkg/errors"
)

// recordingExecutor captures the command and arguments the facade produces
// and returns a scripted reply.
type recordingExecutor struct {
	command string
	args    [][]byte
	reply   Reply
	err     error
}

func (r *recordingExecutor) Do(ctx context.Context, command string, args ...[]byte) (Reply, error) {
	r.command = command
	r.args = args
	return r.reply, r.err
}

func (r *recordingExecutor) argStrings() []string {
	out := make([]string, 0, len(r.args))
	for _, a := range r.args {
		out = append(out, string(a))
	}
	return out
}

func TestGetForwardsKeyAndDecodes(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: BulkStringReply, Bulk: []byte("value")}}
	cmds := NewCommands(exec, nil)

	value, found, err := cmds.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || value != "value" {
		t.Errorf("Get = (%q, %v), want (value, true)", value, found)
	}
	if exec.command != "GET" || strings.Join(exec.argStrings(), " ") != "mykey" {
		t.Errorf("Forwarded %s %v", exec.command, exec.argStrings())
	}
}

func TestGetMissingKey(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: NilReply}}
	cmds := NewCommands(exec, nil)

	_, found, err := cmds.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("Expected found=false for nil reply")
	}
}

func TestSetForwardsEncodedValue(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: SimpleStringReply, Str: "OK"}}
	cmds := NewCommands(exec, nil)

	if err := cmds.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if exec.command != "SET" {
		t.Errorf("Forwarded command %q", exec.command)
	}
	got := exec.argStrings()
	if len(got) != 2 || got[0] != "k" || got[1] != "v" {
		t.Errorf("Forwarded args %v", got)
	}
}

func TestSetUnexpectedReply(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: IntegerReply, Int: 1}}
	cmds := NewCommands(exec, nil)

	err := cmds.Set(context.Background(), "k", "v")
	if err == nil {
		t.Fatal("Expected error for non-status reply")
	}
	if !kverrors.IsCode(err, kverrors.CodeProtocolError) {
		t.Errorf("Expected a protocol error, got %v", err)
	}
}

func TestSetExArgumentOrder(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: SimpleStringReply, Str: "OK"}}
	cmds := NewCommands(exec, nil)

	if err := cmds.SetEx(context.Background(), "k", 30, "v"); err != nil {
		t.Fatalf("SetEx failed: %v", err)
	}
	got := exec.argStrings()
	if len(got) != 3 || got[0] != "k" || got[1] != "30" || got[2] != "v" {
		t.Errorf("Forwarded args %v, want [k 30 v]", got)
	}
}

func TestMGetPreservesGaps(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: ArrayReply, Elems: []Reply{
		{Type: BulkStringReply, Bulk: []byte("one")},
		{Type: NilReply},
		{Type: BulkStringReply, Bulk: []byte("three")},
	}}}
	cmds := NewCommands(exec, nil)

	values, err := cmds.MGet(context.Background(), "a", "b", "c")
	if err != nil {
		t.Fatalf("MGet failed: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("Expected 3 values, got %d", len(values))
	}
	if values[0] == nil || *values[0] != "one" {
		t.Errorf("values[0] = %v", values[0])
	}
	if values[1] != nil {
		t.Errorf("values[1] should be nil for a missing key")
	}
	if values[2] == nil || *values[2] != "three" {
		t.Errorf("values[2] = %v", values[2])
	}
}

func TestHGetAllBuildsMap(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: ArrayReply, Elems: []Reply{
		{Type: BulkStringReply, Bulk: []byte("f1")},
		{Type: BulkStringReply, Bulk: []byte("v1")},
		{Type: BulkStringReply, Bulk: []byte("f2")},
		{Type: BulkStringReply, Bulk: []byte("v2")},
	}}}
	cmds := NewCommands(exec, nil)

	m, err := cmds.HGetAll(context.Background(), "h")
	if err != nil {
		t.Fatalf("HGetAll failed: %v", err)
	}
	if len(m) != 2 || m["f1"] != "v1" || m["f2"] != "v2" {
		t.Errorf("Unexpected map: %v", m)
	}
}

func TestHGetAllOddArray(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: ArrayReply, Elems: []Reply{
		{Type: BulkStringReply, Bulk: []byte("orphan")},
	}}}
	cmds := NewCommands(exec, nil)

	if _, err := cmds.HGetAll(context.Background(), "h"); err == nil {
		t.Error("Expected error for odd-length field/value array")
	}
}

func TestExpireBoolConversion(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: IntegerReply, Int: 1}}
	cmds := NewCommands(exec, nil)

	ok, err := cmds.Expire(context.Background(), "k", 60)
	if err != nil || !ok {
		t.Errorf("Expire = (%v, %v), want (true, nil)", ok, err)
	}

	exec.reply = Reply{Type: IntegerReply, Int: 0}
	ok, err = cmds.Expire(context.Background(), "k", 60)
	if err != nil || ok {
		t.Errorf("Expire = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestLPushMultipleValues(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: IntegerReply, Int: 3}}
	cmds := NewCommands(exec, nil)

	n, err := cmds.LPush(context.Background(), "list", "a", "b", "c")
	if err != nil || n != 3 {
		t.Fatalf("LPush = (%d, %v)", n, err)
	}
	got := exec.argStrings()
	if len(got) != 4 || got[0] != "list" {
		t.Errorf("Forwarded args %v", got)
	}
}

func TestLRangeArgumentEncoding(t *testing.T) {
	exec := &recordingExecutor{reply: Reply{Type: ArrayReply}}
	cmds := NewCommands(exec, nil)

	if _, err := cmds.LRange(context.Background(), "list", 0, -1); err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	got := exec.argStrings()
	if len(got) != 3 || got[1] != "0" || got[2] != "-1" {
		t.Errorf("Forwarded args %v, want [list 0 -1]", got)
	}
}

func TestErrorsPassThrough(t *testing.T) {
	exec := &recordingExecutor{err: context.DeadlineExceeded}
	cmds := NewCommands(exec, nil)

	if _, _, err := cmds.Get(context.Background(), "k"); err != context.DeadlineExceeded {
		t.Errorf("Expected executor error to pass through, got %v", err)
	}
	if err := cmds.Ping(context.Background()); err != context.DeadlineExceeded {
		t.Errorf("Expected executor error to pass through, got %v", err)
	}
}
