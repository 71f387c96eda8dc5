package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dayanaadylkhanova/pow-duel/internal/duel"
	"github.com/dayanaadylkhanova/pow-duel/internal/entity"
	"github.com/dayanaadylkhanova/pow-duel/internal/service"
)

func TestDialer_RunsInitiatorDuel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		defer close(accepted)
		c, err := ln.Accept()
		if err == nil {
			_, _ = io.Copy(io.Discard, c)
			_ = c.Close()
		}
	}()

	ctrl := gomock.NewController(t)
	md := NewMockDuelist(ctrl)
	md.EXPECT().
		Run(gomock.Any(), gomock.Any(), duel.RoleInitiator).
		Return(duel.OutcomeWon, nil)

	d := NewDialer(loggerSilent(), ln.Addr().String(), time.Second, md)
	require.NoError(t, d.Run(context.Background()))

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("dialer did not close its connection")
	}
}

func TestDialer_DuelError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if c, err := ln.Accept(); err == nil {
			_ = c.Close()
		}
	}()

	ctrl := gomock.NewController(t)
	md := NewMockDuelist(ctrl)
	md.EXPECT().
		Run(gomock.Any(), gomock.Any(), duel.RoleInitiator).
		Return(duel.OutcomeUndecided, duel.ErrTransport)

	err = NewDialer(loggerSilent(), ln.Addr().String(), time.Second, md).Run(context.Background())
	assert.ErrorIs(t, err, duel.ErrTransport)
}

func TestDialer_DialFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	d := NewDialer(loggerSilent(), freeTCPAddr(t), 200*time.Millisecond, NewMockDuelist(ctrl))

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}

// strictDummy rejects every reply, so the side holding it wins on the first
// answer it reviews.
type strictDummy struct{ *service.Dummy }

func (strictDummy) Review([]byte, entity.Solution) error {
	return &service.SolverError{Kind: service.ErrComputationFailed, Detail: "rejected"}
}

func TestDuelOverTCP(t *testing.T) {
	t.Parallel()

	responderReg, err := service.NewRegistry(service.NewDummy())
	require.NoError(t, err)
	initiatorReg, err := service.NewRegistry(strictDummy{service.NewDummy()})
	require.NoError(t, err)

	cfg := duel.Config{StartSolver: service.DummyName, StartDifficulty: 1}
	outcomes := make(chan duel.Outcome, 2)
	obs := finishedObserver(outcomes)

	addr := freeTCPAddr(t)
	srv := NewServer(loggerSilent(), addr, time.Second, duel.New(loggerSilent(), responderReg, cfg, obs), true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Run(ctx) }()

	dialer := NewDialer(loggerSilent(), addr, time.Second, duel.New(loggerSilent(), initiatorReg, cfg, obs))
	var dialErr error
	for i := 0; i < 50; i++ {
		if dialErr = dialer.Run(ctx); dialErr == nil {
			break
		}
		var opErr *net.OpError
		if !errors.As(dialErr, &opErr) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, dialErr)
	require.NoError(t, <-srvErr)

	got := map[duel.Outcome]int{}
	got[<-outcomes]++
	got[<-outcomes]++
	assert.Equal(t, map[duel.Outcome]int{duel.OutcomeWon: 1, duel.OutcomeLost: 1}, got)
}

type finishedObserver chan duel.Outcome

func (finishedObserver) ChallengeSent(string, uint32)                  {}
func (finishedObserver) ChallengeSolved(string, uint32, time.Duration) {}
func (finishedObserver) ReplyReviewed(string, error)                   {}
func (o finishedObserver) Finished(out duel.Outcome, _ error)          { o <- out }
