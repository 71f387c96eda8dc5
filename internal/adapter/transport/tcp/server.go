package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dayanaadylkhanova/pow-duel/internal/duel"
)

// Server accepts connections and plays each one as the responder. In single
// mode it stops accepting after the first connection and returns once that
// duel is over.
type Server struct {
	log       *slog.Logger
	addr      string
	duelist   Duelist
	single    bool
	ln        net.Listener
	wg        sync.WaitGroup
	connsMu   sync.Mutex
	active    map[net.Conn]struct{}
	shutdownT time.Duration
}

func NewServer(log *slog.Logger, addr string, shutdown time.Duration, duelist Duelist, single bool) *Server {
	return &Server{
		log:       log,
		addr:      addr,
		duelist:   duelist,
		single:    single,
		shutdownT: shutdown,
		active:    make(map[net.Conn]struct{}),
	}
}

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.ln = ln
	s.log.Info("waiting for challengers", "addr", ln.Addr().String(), "single", s.single)

	errCh := make(chan error, 1)
	go func() { errCh <- s.acceptLoop(ctx) }()

	select {
	case <-ctx.Done():
		s.shutdown()
		return nil
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	// single mode: the listener is closed, wait for the duel in flight
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.shutdown()
		return nil
	}
}

func (s *Server) shutdown() {
	s.log.Info("shutdown: closing listener")
	_ = s.ln.Close()

	s.connsMu.Lock()
	for c := range s.active {
		_ = c.SetDeadline(time.Now().Add(200 * time.Millisecond))
		if tc, ok := c.(*net.TCPConn); ok {
			_ = tc.CloseWrite()
		}
	}
	s.connsMu.Unlock()

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-done:
		s.log.Info("shutdown: all duels drained")
	case <-time.After(s.shutdownT):
		s.log.Warn("shutdown: force-close remaining connections")
		s.connsMu.Lock()
		for c := range s.active {
			_ = c.Close()
		}
		s.connsMu.Unlock()
	}
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Warn("temporary accept error", "err", err)
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.track(conn, true)
		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer s.track(c, false)
			s.handle(ctx, c)
		}(conn)

		if s.single {
			_ = s.ln.Close()
		}
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.connsMu.Lock()
	if add {
		s.active[c] = struct{}{}
	} else {
		delete(s.active, c)
	}
	s.connsMu.Unlock()
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	log := s.log.With("duel_id", uuid.NewString(), "remote", conn.RemoteAddr().String())
	log.Info("challenger connected")

	outcome, err := s.duelist.Run(ctx, conn, duel.RoleResponder)
	if err != nil {
		log.Error("duel aborted", "err", err)
		return
	}
	log.Info("duel finished", "outcome", outcome.String())
}
