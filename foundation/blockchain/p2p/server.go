package p2p

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/serialize"
)

// Handler is the behavior the chain engine provides to the server. Query
// messages return the payload to frame back on the same connection; the
// rest are fire-and-forget.
type Handler interface {
	HandleGetBlocks(msg GetBlocksMsg, fromHost string)
	HandleInv(msg InvMsg, fromHost string)
	HandleTransaction(tx database.Transaction)
	HandleBlock(block database.Block)
	HandleAddPeer(host string)
	HandleGetUTXOs() any
	HandleGetMempool() any
	HandleGetActiveChain() any
}

// Server accepts peer connections and dispatches one framed message per
// connection.
type Server struct {
	Addr      string
	Handler   Handler
	EvHandler func(v string, args ...any)

	listener net.Listener
	wg       sync.WaitGroup
}

// Start begins listening and accepting peer connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.accept()
	}()

	s.ev("p2p: server: listening on %s", s.Addr)

	return nil
}

// ListenAddr returns the address the server is bound to, useful when
// the configured address picked an ephemeral port.
func (s *Server) ListenAddr() string {
	if s.listener == nil {
		return s.Addr
	}

	return s.listener.Addr().String()
}

// Shutdown stops the listener and waits for in-flight connections.
func (s *Server) Shutdown() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.ev("p2p: server: accept: ERROR: %s", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	traceID := uuid.NewString()

	fromHost, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		fromHost = conn.RemoteAddr().String()
	}

	msg, err := serialize.ReadMessage(conn)
	if err != nil {
		s.ev("p2p: server: %s: read from %s: ERROR: %s", traceID, fromHost, err)
		return
	}

	s.ev("p2p: server: %s: recv %T from %s", traceID, msg, fromHost)

	switch m := msg.(type) {
	case GetBlocksMsg:
		s.Handler.HandleGetBlocks(m, fromHost)

	case InvMsg:
		s.Handler.HandleInv(m, fromHost)

	case database.Transaction:
		s.Handler.HandleTransaction(m)

	case database.Block:
		s.Handler.HandleBlock(m)

	case AddPeerMsg:
		s.Handler.HandleAddPeer(m.PeerHostname)

	case GetUTXOsMsg:
		s.respond(conn, traceID, s.Handler.HandleGetUTXOs())

	case GetMempoolMsg:
		s.respond(conn, traceID, s.Handler.HandleGetMempool())

	case GetActiveChainMsg:
		s.respond(conn, traceID, s.Handler.HandleGetActiveChain())

	default:
		s.ev("p2p: server: %s: unhandled message %T", traceID, msg)
	}
}

func (s *Server) respond(conn net.Conn, traceID string, payload any) {
	if err := serialize.WriteFrame(conn, payload); err != nil {
		s.ev("p2p: server: %s: respond: ERROR: %s", traceID, err)
	}
}

func (s *Server) ev(v string, args ...any) {
	if s.EvHandler != nil {
		s.EvHandler(v, args...)
	}
}
