package protocol

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
)

// TestServer is a minimal in-memory RESP server used by the test suites and
// the runnable examples. It implements just enough of the command surface to
// exercise the connection manager: handshake (AUTH/SELECT), basic string and
// counter commands, and deliberate connection dropping to simulate transport
// loss.
type TestServer struct {
	ln       net.Listener
	password string

	mu    sync.Mutex
	data  map[string]string
	conns map[net.Conn]struct{}
	binds int
}

// StartTestServer starts a TestServer on an ephemeral localhost port.
// password may be empty to disable the AUTH requirement.
func StartTestServer(password string) (*TestServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &TestServer{
		ln:       ln,
		password: password,
		data:     make(map[string]string),
		conns:    make(map[net.Conn]struct{}),
	}
	go s.acceptLoop()
	return s, nil
}

// Port returns the TCP port the server listens on.
func (s *TestServer) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Addr returns the host:port address of the server.
func (s *TestServer) Addr() string {
	return s.ln.Addr().String()
}

// Accepted returns how many connections the server has accepted so far.
func (s *TestServer) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binds
}

// DropConnections closes every active connection, simulating transport loss.
func (s *TestServer) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[net.Conn]struct{})
}

// Close stops the listener and drops all connections.
func (s *TestServer) Close() {
	s.ln.Close()
	s.DropConnections()
}

func (s *TestServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.binds++
		s.mu.Unlock()
		go s.serve(conn)
	}
}

func (s *TestServer) serve(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	authed := s.password == ""

	for {
		request, err := readReply(reader)
		if err != nil {
			return
		}
		if request.Type != ArrayReply || len(request.Elems) == 0 {
			return
		}

		args := make([]string, 0, len(request.Elems))
		for _, elem := range request.Elems {
			args = append(args, string(elem.Bulk))
		}
		name := strings.ToUpper(args[0])

		if !authed && name != "AUTH" {
			writeError(writer, "NOAUTH Authentication required.")
			continue
		}

		switch name {
		case "AUTH":
			if len(args) == 2 && args[1] == s.password {
				authed = true
				writeStatus(writer, "OK")
			} else {
				writeError(writer, "ERR invalid password")
			}

		case "SELECT":
			db, err := strconv.Atoi(args[1])
			if err != nil || db < 0 || db > 15 {
				writeError(writer, "ERR invalid DB index")
			} else {
				writeStatus(writer, "OK")
			}

		case "PING":
			writeStatus(writer, "PONG")

		case "ECHO":
			writeBulk(writer, []byte(args[1]))

		case "GET":
			s.mu.Lock()
			value, ok := s.data[args[1]]
			s.mu.Unlock()
			if ok {
				writeBulk(writer, []byte(value))
			} else {
				writeNil(writer)
			}

		case "SET":
			s.mu.Lock()
			s.data[args[1]] = args[2]
			s.mu.Unlock()
			writeStatus(writer, "OK")

		case "DEL":
			removed := int64(0)
			s.mu.Lock()
			for _, key := range args[1:] {
				if _, ok := s.data[key]; ok {
					delete(s.data, key)
					removed++
				}
			}
			s.mu.Unlock()
			writeInt(writer, removed)

		case "EXISTS":
			found := int64(0)
			s.mu.Lock()
			for _, key := range args[1:] {
				if _, ok := s.data[key]; ok {
					found++
				}
			}
			s.mu.Unlock()
			writeInt(writer, found)

		case "INCR":
			s.mu.Lock()
			n, _ := strconv.ParseInt(s.data[args[1]], 10, 64)
			n++
			s.data[args[1]] = strconv.FormatInt(n, 10)
			s.mu.Unlock()
			writeInt(writer, n)

		case "DBSIZE":
			s.mu.Lock()
			n := int64(len(s.data))
			s.mu.Unlock()
			writeInt(writer, n)

		case "FLUSHDB":
			s.mu.Lock()
			s.data = make(map[string]string)
			s.mu.Unlock()
			writeStatus(writer, "OK")

		case "KEYS":
			s.mu.Lock()
			keys := make([]string, 0, len(s.data))
			for key := range s.data {
				keys = append(keys, key)
			}
			s.mu.Unlock()
			writeStringArray(writer, keys)

		default:
			writeError(writer, fmt.Sprintf("ERR unknown command '%s'", args[0]))
		}

		if err := writer.Flush(); err != nil {
			return
		}
	}
}

func writeStatus(w *bufio.Writer, status string) {
	w.WriteString("+" + status + "\r\n")
}

func writeError(w *bufio.Writer, message string) {
	w.WriteString("-" + message + "\r\n")
}

func writeInt(w *bufio.Writer, n int64) {
	w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
}

func writeBulk(w *bufio.Writer, data []byte) {
	w.WriteString("$" + strconv.Itoa(len(data)) + "\r\n")
	w.Write(data)
	w.WriteString("\r\n")
}

func writeNil(w *bufio.Writer) {
	w.WriteString("$-1\r\n")
}

func writeStringArray(w *bufio.Writer, values []string) {
	w.WriteString("*" + strconv.Itoa(len(values)) + "\r\n")
	for _, v := range values {
		writeBulk(w, []byte(v))
	}
}
