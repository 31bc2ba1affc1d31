// Package protocol implements the stateful protocol handle for kvlink: the
// RESP wire codec, the authoritative command registry, value encoding and the
// Handle type that owns protocol framing over a bound transport.
//
// The connection manager in pkg/connection treats this package as a
// collaborator: it binds live transports to a Handle, forwards command calls
// to it, and listens for its connection-lost notification.
package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	kverrors "github.com/ajitpratap0/kvlink-go/pkg/errors"
)

// ReplyType identifies the RESP type of a server reply.
type ReplyType int

const (
	// SimpleStringReply is a "+OK" style status line.
	SimpleStringReply ReplyType = iota
	// ErrorReply is a "-ERR ..." error line.
	ErrorReply
	// IntegerReply is a ":n" integer line.
	IntegerReply
	// BulkStringReply is a "$n" length-prefixed payload.
	BulkStringReply
	// ArrayReply is a "*n" sequence of nested replies.
	ArrayReply
	// NilReply is a null bulk string or null array ("$-1" / "*-1").
	NilReply
)

// Reply is a decoded RESP server reply.
type Reply struct {
	Type  ReplyType
	Str   string  // SimpleStringReply status or ErrorReply message
	Int   int64   // IntegerReply value
	Bulk  []byte  // BulkStringReply payload
	Elems []Reply // ArrayReply elements
}

// IsNil reports whether the reply is a RESP null.
func (r Reply) IsNil() bool {
	return r.Type == NilReply
}

// writeCommand encodes a command and its arguments as a RESP array of bulk
// strings. The caller is responsible for flushing the writer.
func writeCommand(w *bufio.Writer, args [][]byte) error {
	if _, err := w.WriteString("*" + strconv.Itoa(len(args)) + "\r\n"); err != nil {
		return err
	}
	for _, arg := range args {
		if _, err := w.WriteString("$" + strconv.Itoa(len(arg)) + "\r\n"); err != nil {
			return err
		}
		if _, err := w.Write(arg); err != nil {
			return err
		}
		if _, err := w.WriteString("\r\n"); err != nil {
			return err
		}
	}
	return nil
}

// readReply decodes a single RESP reply, recursing into arrays.
func readReply(r *bufio.Reader) (Reply, error) {
	line, err := readLine(r)
	if err != nil {
		return Reply{}, err
	}
	if len(line) == 0 {
		return Reply{}, kverrors.NewProtocolError(nil, "empty reply line")
	}

	kind, rest := line[0], line[1:]
	switch kind {
	case '+':
		return Reply{Type: SimpleStringReply, Str: rest}, nil

	case '-':
		return Reply{Type: ErrorReply, Str: rest}, nil

	case ':':
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return Reply{}, kverrors.NewProtocolError(err, fmt.Sprintf("malformed integer reply %q", rest))
		}
		return Reply{Type: IntegerReply, Int: n}, nil

	case '$':
		n, err := strconv.Atoi(rest)
		if err != nil {
			return Reply{}, kverrors.NewProtocolError(err, fmt.Sprintf("malformed bulk length %q", rest))
		}
		if n < 0 {
			return Reply{Type: NilReply}, nil
		}
		buf := make([]byte, n+2) // payload + trailing CRLF
		if _, err := io.ReadFull(r, buf); err != nil {
			return Reply{}, err
		}
		if buf[n] != '\r' || buf[n+1] != '\n' {
			return Reply{}, kverrors.NewProtocolError(nil, "bulk reply missing CRLF terminator")
		}
		return Reply{Type: BulkStringReply, Bulk: buf[:n]}, nil

	case '*':
		n, err := strconv.Atoi(rest)
		if err != nil {
			return Reply{}, kverrors.NewProtocolError(err, fmt.Sprintf("malformed array length %q", rest))
		}
		if n < 0 {
			return Reply{Type: NilReply}, nil
		}
		elems := make([]Reply, 0, n)
		for i := 0; i < n; i++ {
			elem, err := readReply(r)
			if err != nil {
				return Reply{}, err
			}
			elems = append(elems, elem)
		}
		return Reply{Type: ArrayReply, Elems: elems}, nil

	default:
		return Reply{}, kverrors.NewProtocolError(nil, fmt.Sprintf("unknown reply type %q", kind))
	}
}

// readLine reads a CRLF-terminated line, returning it without the terminator.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", kverrors.NewProtocolError(nil, "line missing CRLF terminator")
	}
	return line[:len(line)-2], nil
}
