package network

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"bergbridge/internal/logger"
	"bergbridge/internal/types"

	"github.com/google/uuid"
)

// Submitter is the part of the router the transport needs.
type Submitter interface {
	Submit(ctx context.Context, env *types.CommandEnvelope) types.Response
}

type Server struct {
	Addr         string
	Router       Submitter
	MaxFrameSize int

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	closed   bool
}

func NewServer(addr string, router Submitter, maxFrameSize int) *Server {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Server{
		Addr:         addr,
		Router:       router,
		MaxFrameSize: maxFrameSize,
		conns:        make(map[net.Conn]struct{}),
	}
}

// Start listens on Addr and serves until Close.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until Close. It returns nil after
// Close and the accept error otherwise.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.mu.Unlock()
	logger.Info("bridge listening on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger.Error("Accept error: %v", err)
				continue
			}
			return err
		}

		// Optimize Buffer Size
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetReadBuffer(65536) // 64KB
			tcpConn.SetWriteBuffer(65536)
		}

		if !s.track(conn) {
			conn.Close()
			return nil
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Close stops accepting, closes open connections and waits for their goroutines.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	session := uuid.NewString()
	logger.Info("session %s: connected from %s", session, conn.RemoteAddr())

	for {
		buf, err := ReadFrame(conn, s.MaxFrameSize)
		if err != nil {
			if errors.Is(err, ErrFrameTooLarge) {
				logger.Error("session %s: %v", session, err)
			} else if err != io.EOF && !s.isClosed() {
				logger.Error("session %s: read frame: %v", session, err)
			}
			logger.Info("session %s: closed", session)
			return
		}

		env, err := UnmarshalEnvelope(buf)
		if err != nil {
			// No command id to answer with.
			logger.Error("session %s: unmarshal envelope: %v", session, err)
			continue
		}

		resp := s.Router.Submit(context.Background(), env)
		logger.Info("session %s: %s id %d -> %s", session, env.Header.Command, resp.CommandID, resp.Code)

		if err := WriteFrame(conn, MarshalResponse(resp)); err != nil {
			logger.Error("session %s: write response: %v", session, err)
			return
		}
	}
}
