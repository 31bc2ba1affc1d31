package protocol

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	kverrors "github.com/ajitpratap0/kvlink-go/pkg/errors"
)

// Executor executes a single recognized command against the remote server.
// Handle implements it directly; the connection manager implements it by
// forwarding through its middleware chain to the bound Handle.
type Executor interface {
	Do(ctx context.Context, command string, args ...[]byte) (Reply, error)
}

// commandSet is the authoritative registry of recognized command names.
// Command forwarding consults it at call time; names outside it are rejected
// before anything touches the wire.
var commandSet = map[string]struct{}{
	"AUTH":     {},
	"SELECT":   {},
	"PING":     {},
	"ECHO":     {},
	"GET":      {},
	"SET":      {},
	"SETEX":    {},
	"SETNX":    {},
	"APPEND":   {},
	"STRLEN":   {},
	"MGET":     {},
	"MSET":     {},
	"DEL":      {},
	"EXISTS":   {},
	"EXPIRE":   {},
	"TTL":      {},
	"PERSIST":  {},
	"INCR":     {},
	"INCRBY":   {},
	"DECR":     {},
	"DECRBY":   {},
	"HSET":     {},
	"HGET":     {},
	"HGETALL":  {},
	"HDEL":     {},
	"LPUSH":    {},
	"RPUSH":    {},
	"LPOP":     {},
	"RPOP":     {},
	"LLEN":     {},
	"LRANGE":   {},
	"SADD":     {},
	"SREM":     {},
	"SMEMBERS": {},
	"SCARD":    {},
	"KEYS":     {},
	"TYPE":     {},
	"RENAME":   {},
	"DBSIZE":   {},
	"FLUSHDB":  {},
}

// IsCommand reports whether name is in the recognized command set.
// Matching is case-insensitive.
func IsCommand(name string) bool {
	_, ok := commandSet[strings.ToUpper(name)]
	return ok
}

// CommandNames returns the recognized command names in sorted order.
func CommandNames() []string {
	names := make([]string, 0, len(commandSet))
	for name := range commandSet {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands is the typed command surface of the remote server. It is
// implemented once, generically, over any Executor — neither the Handle nor
// the connection manager declares per-command logic.
type Commands interface {
	Ping(ctx context.Context) error
	Echo(ctx context.Context, message string) (string, error)

	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetEx(ctx context.Context, key string, seconds int64, value string) error
	SetNX(ctx context.Context, key, value string) (bool, error)
	Append(ctx context.Context, key, value string) (int64, error)
	Strlen(ctx context.Context, key string) (int64, error)
	MGet(ctx context.Context, keys ...string) ([]*string, error)
	MSet(ctx context.Context, pairs map[string]string) error

	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, seconds int64) (bool, error)
	TTL(ctx context.Context, key string) (int64, error)
	Persist(ctx context.Context, key string) (bool, error)

	Incr(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	DecrBy(ctx context.Context, key string, delta int64) (int64, error)

	HSet(ctx context.Context, key, field, value string) (bool, error)
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)

	LPush(ctx context.Context, key string, values ...string) (int64, error)
	RPush(ctx context.Context, key string, values ...string) (int64, error)
	LPop(ctx context.Context, key string) (string, bool, error)
	RPop(ctx context.Context, key string) (string, bool, error)
	LLen(ctx context.Context, key string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)

	Keys(ctx context.Context, pattern string) ([]string, error)
	Type(ctx context.Context, key string) (string, error)
	Rename(ctx context.Context, key, newKey string) error
	DBSize(ctx context.Context) (int64, error)
	FlushDB(ctx context.Context) error
}

// NewCommands returns the typed command surface over the given executor.
// A nil encoder defaults to UTF8Encoder.
func NewCommands(exec Executor, enc Encoder) Commands {
	if enc == nil {
		enc = UTF8Encoder{}
	}
	return &commandFacade{exec: exec, enc: enc}
}

type commandFacade struct {
	exec Executor
	enc  Encoder
}

func (c *commandFacade) Ping(ctx context.Context) error {
	reply, err := c.exec.Do(ctx, "PING")
	if err != nil {
		return err
	}
	return expectStatus(reply, "PONG")
}

func (c *commandFacade) Echo(ctx context.Context, message string) (string, error) {
	reply, err := c.exec.Do(ctx, "ECHO", c.enc.Encode(message))
	if err != nil {
		return "", err
	}
	return c.bulkString(reply)
}

func (c *commandFacade) Get(ctx context.Context, key string) (string, bool, error) {
	reply, err := c.exec.Do(ctx, "GET", []byte(key))
	return c.optionalString(reply, err)
}

func (c *commandFacade) Set(ctx context.Context, key, value string) error {
	reply, err := c.exec.Do(ctx, "SET", []byte(key), c.enc.Encode(value))
	if err != nil {
		return err
	}
	return expectStatus(reply, "OK")
}

func (c *commandFacade) SetEx(ctx context.Context, key string, seconds int64, value string) error {
	reply, err := c.exec.Do(ctx, "SETEX", []byte(key), int64Arg(seconds), c.enc.Encode(value))
	if err != nil {
		return err
	}
	return expectStatus(reply, "OK")
}

func (c *commandFacade) SetNX(ctx context.Context, key, value string) (bool, error) {
	reply, err := c.exec.Do(ctx, "SETNX", []byte(key), c.enc.Encode(value))
	return intAsBool(reply, err)
}

func (c *commandFacade) Append(ctx context.Context, key, value string) (int64, error) {
	reply, err := c.exec.Do(ctx, "APPEND", []byte(key), c.enc.Encode(value))
	return intValue(reply, err)
}

func (c *commandFacade) Strlen(ctx context.Context, key string) (int64, error) {
	reply, err := c.exec.Do(ctx, "STRLEN", []byte(key))
	return intValue(reply, err)
}

func (c *commandFacade) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	reply, err := c.exec.Do(ctx, "MGET", keyArgs(keys)...)
	if err != nil {
		return nil, err
	}
	if reply.Type != ArrayReply {
		return nil, unexpectedReply(reply)
	}
	values := make([]*string, 0, len(reply.Elems))
	for _, elem := range reply.Elems {
		if elem.IsNil() {
			values = append(values, nil)
			continue
		}
		s, err := c.enc.Decode(elem.Bulk)
		if err != nil {
			return nil, err
		}
		values = append(values, &s)
	}
	return values, nil
}

func (c *commandFacade) MSet(ctx context.Context, pairs map[string]string) error {
	args := make([][]byte, 0, len(pairs)*2)
	for key, value := range pairs {
		args = append(args, []byte(key), c.enc.Encode(value))
	}
	reply, err := c.exec.Do(ctx, "MSET", args...)
	if err != nil {
		return err
	}
	return expectStatus(reply, "OK")
}

func (c *commandFacade) Del(ctx context.Context, keys ...string) (int64, error) {
	reply, err := c.exec.Do(ctx, "DEL", keyArgs(keys)...)
	return intValue(reply, err)
}

func (c *commandFacade) Exists(ctx context.Context, keys ...string) (int64, error) {
	reply, err := c.exec.Do(ctx, "EXISTS", keyArgs(keys)...)
	return intValue(reply, err)
}

func (c *commandFacade) Expire(ctx context.Context, key string, seconds int64) (bool, error) {
	reply, err := c.exec.Do(ctx, "EXPIRE", []byte(key), int64Arg(seconds))
	return intAsBool(reply, err)
}

func (c *commandFacade) TTL(ctx context.Context, key string) (int64, error) {
	reply, err := c.exec.Do(ctx, "TTL", []byte(key))
	return intValue(reply, err)
}

func (c *commandFacade) Persist(ctx context.Context, key string) (bool, error) {
	reply, err := c.exec.Do(ctx, "PERSIST", []byte(key))
	return intAsBool(reply, err)
}

func (c *commandFacade) Incr(ctx context.Context, key string) (int64, error) {
	reply, err := c.exec.Do(ctx, "INCR", []byte(key))
	return intValue(reply, err)
}

func (c *commandFacade) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	reply, err := c.exec.Do(ctx, "INCRBY", []byte(key), int64Arg(delta))
	return intValue(reply, err)
}

func (c *commandFacade) Decr(ctx context.Context, key string) (int64, error) {
	reply, err := c.exec.Do(ctx, "DECR", []byte(key))
	return intValue(reply, err)
}

func (c *commandFacade) DecrBy(ctx context.Context, key string, delta int64) (int64, error) {
	reply, err := c.exec.Do(ctx, "DECRBY", []byte(key), int64Arg(delta))
	return intValue(reply, err)
}

func (c *commandFacade) HSet(ctx context.Context, key, field, value string) (bool, error) {
	reply, err := c.exec.Do(ctx, "HSET", []byte(key), []byte(field), c.enc.Encode(value))
	return intAsBool(reply, err)
}

func (c *commandFacade) HGet(ctx context.Context, key, field string) (string, bool, error) {
	reply, err := c.exec.Do(ctx, "HGET", []byte(key), []byte(field))
	return c.optionalString(reply, err)
}

func (c *commandFacade) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	reply, err := c.exec.Do(ctx, "HGETALL", []byte(key))
	if err != nil {
		return nil, err
	}
	if reply.Type != ArrayReply || len(reply.Elems)%2 != 0 {
		return nil, unexpectedReply(reply)
	}
	result := make(map[string]string, len(reply.Elems)/2)
	for i := 0; i < len(reply.Elems); i += 2 {
		field, err := c.bulkString(reply.Elems[i])
		if err != nil {
			return nil, err
		}
		value, err := c.bulkString(reply.Elems[i+1])
		if err != nil {
			return nil, err
		}
		result[field] = value
	}
	return result, nil
}

func (c *commandFacade) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	args := append([][]byte{[]byte(key)}, keyArgs(fields)...)
	reply, err := c.exec.Do(ctx, "HDEL", args...)
	return intValue(reply, err)
}

func (c *commandFacade) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	reply, err := c.exec.Do(ctx, "LPUSH", c.valueArgs(key, values)...)
	return intValue(reply, err)
}

func (c *commandFacade) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	reply, err := c.exec.Do(ctx, "RPUSH", c.valueArgs(key, values)...)
	return intValue(reply, err)
}

func (c *commandFacade) LPop(ctx context.Context, key string) (string, bool, error) {
	reply, err := c.exec.Do(ctx, "LPOP", []byte(key))
	return c.optionalString(reply, err)
}

func (c *commandFacade) RPop(ctx context.Context, key string) (string, bool, error) {
	reply, err := c.exec.Do(ctx, "RPOP", []byte(key))
	return c.optionalString(reply, err)
}

func (c *commandFacade) LLen(ctx context.Context, key string) (int64, error) {
	reply, err := c.exec.Do(ctx, "LLEN", []byte(key))
	return intValue(reply, err)
}

func (c *commandFacade) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	reply, err := c.exec.Do(ctx, "LRANGE", []byte(key), int64Arg(start), int64Arg(stop))
	return c.stringSlice(reply, err)
}

func (c *commandFacade) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	reply, err := c.exec.Do(ctx, "SADD", c.valueArgs(key, members)...)
	return intValue(reply, err)
}

func (c *commandFacade) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	reply, err := c.exec.Do(ctx, "SREM", c.valueArgs(key, members)...)
	return intValue(reply, err)
}

func (c *commandFacade) SMembers(ctx context.Context, key string) ([]string, error) {
	reply, err := c.exec.Do(ctx, "SMEMBERS", []byte(key))
	return c.stringSlice(reply, err)
}

func (c *commandFacade) SCard(ctx context.Context, key string) (int64, error) {
	reply, err := c.exec.Do(ctx, "SCARD", []byte(key))
	return intValue(reply, err)
}

func (c *commandFacade) Keys(ctx context.Context, pattern string) ([]string, error) {
	reply, err := c.exec.Do(ctx, "KEYS", []byte(pattern))
	return c.stringSlice(reply, err)
}

func (c *commandFacade) Type(ctx context.Context, key string) (string, error) {
	reply, err := c.exec.Do(ctx, "TYPE", []byte(key))
	if err != nil {
		return "", err
	}
	if reply.Type != SimpleStringReply {
		return "", unexpectedReply(reply)
	}
	return reply.Str, nil
}

func (c *commandFacade) Rename(ctx context.Context, key, newKey string) error {
	reply, err := c.exec.Do(ctx, "RENAME", []byte(key), []byte(newKey))
	if err != nil {
		return err
	}
	return expectStatus(reply, "OK")
}

func (c *commandFacade) DBSize(ctx context.Context) (int64, error) {
	reply, err := c.exec.Do(ctx, "DBSIZE")
	return intValue(reply, err)
}

func (c *commandFacade) FlushDB(ctx context.Context) error {
	reply, err := c.exec.Do(ctx, "FLUSHDB")
	if err != nil {
		return err
	}
	return expectStatus(reply, "OK")
}

// Reply conversion helpers.

func (c *commandFacade) bulkString(reply Reply) (string, error) {
	switch reply.Type {
	case BulkStringReply:
		return c.enc.Decode(reply.Bulk)
	case SimpleStringReply:
		return reply.Str, nil
	default:
		return "", unexpectedReply(reply)
	}
}

func (c *commandFacade) optionalString(reply Reply, err error) (string, bool, error) {
	if err != nil {
		return "", false, err
	}
	if reply.IsNil() {
		return "", false, nil
	}
	s, err := c.bulkString(reply)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func (c *commandFacade) stringSlice(reply Reply, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	if reply.Type != ArrayReply {
		return nil, unexpectedReply(reply)
	}
	values := make([]string, 0, len(reply.Elems))
	for _, elem := range reply.Elems {
		s, err := c.bulkString(elem)
		if err != nil {
			return nil, err
		}
		values = append(values, s)
	}
	return values, nil
}

func (c *commandFacade) valueArgs(key string, values []string) [][]byte {
	args := make([][]byte, 0, len(values)+1)
	args = append(args, []byte(key))
	for _, v := range values {
		args = append(args, c.enc.Encode(v))
	}
	return args
}

func intValue(reply Reply, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	if reply.Type != IntegerReply {
		return 0, unexpectedReply(reply)
	}
	return reply.Int, nil
}

func intAsBool(reply Reply, err error) (bool, error) {
	n, err := intValue(reply, err)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

func expectStatus(reply Reply, status string) error {
	if reply.Type != SimpleStringReply || reply.Str != status {
		return unexpectedReply(reply)
	}
	return nil
}

func unexpectedReply(reply Reply) error {
	return kverrors.NewProtocolError(nil, fmt.Sprintf("unexpected reply type %d", reply.Type))
}

func keyArgs(keys []string) [][]byte {
	args := make([][]byte, 0, len(keys))
	for _, key := range keys {
		args = append(args, []byte(key))
	}
	return args
}

func int64Arg(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}
