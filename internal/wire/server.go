package wire

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"order-matching-engine/internal/engine"
)

// maxLineBytes bounds a single request line so a misbehaving client
// can't exhaust memory by streaming an unterminated line.
const maxLineBytes = 1 << 20

// Server is a TCP front door over a single Engine. Each connection is
// served by its own goroutine; a connection stays open and accepts
// many newline-delimited requests, closing only when the client
// disconnects, per the original socket server's framing (spec section
// 6 and original_source/networking/tcp_server.py).
type Server struct {
	addr   string
	engine *engine.Engine
	log    zerolog.Logger

	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer constructs a Server bound to addr (host:port) once Serve
// is called.
func NewServer(addr string, eng *engine.Engine, log zerolog.Logger) *Server {
	return &Server{addr: addr, engine: eng, log: log}
}

// Serve opens the listener and blocks, accepting connections until the
// listener is closed (by Close, typically from a signal handler in
// cmd/server). A closed-listener accept error is expected and not
// reported as a fault.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info().Str("addr", s.addr).Msg("listening for connections")

	return s.acceptLoop(ln)
}

// acceptLoop runs the accept loop against an already-bound listener.
// Split out from Serve so tests can bind an ephemeral port themselves
// and drive the loop directly.
func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if isClosedError(err) {
				return nil
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// isClosedError reports whether err is the expected result of Accept
// racing a concurrent Close, rather than a real fault.
func isClosedError(err error) bool {
	opErr, ok := err.(*net.OpError)
	return ok && opErr.Err != nil && opErr.Err.Error() == "use of closed network connection"
}

// Close stops accepting new connections and waits for every connection
// handler to return. It does not forcibly sever open connections, and a
// handler returns only when its client disconnects, so Close blocks until
// all connected clients have disconnected.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

// handleConn serves one client connection: decode one JSON line,
// place one order, encode exactly one response line, repeat until the
// client disconnects. A malformed line yields a decode-error response
// rather than closing the connection, matching the source socket
// server's behavior.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req requestDTO
		if err := json.Unmarshal(line, &req); err != nil {
			if encErr := encoder.Encode(decodeErrorResponse("malformed request: " + err.Error())); encErr != nil {
				s.log.Warn().Err(encErr).Msg("failed to write decode-error response")
				return
			}
			continue
		}

		resp := s.engine.PlaceOrder(req.toOrderRequest())
		if err := encoder.Encode(newResponseDTO(resp)); err != nil {
			s.log.Warn().Err(err).Msg("failed to write response")
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Debug().Err(err).Msg("connection closed with read error")
	}
}
