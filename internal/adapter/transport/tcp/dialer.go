package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/dayanaadylkhanova/pow-duel/internal/duel"
)

// Dialer connects to a listening peer and plays one duel as the initiator.
type Dialer struct {
	log     *slog.Logger
	addr    string
	timeout time.Duration
	duelist Duelist
}

func NewDialer(log *slog.Logger, addr string, timeout time.Duration, duelist Duelist) *Dialer {
	return &Dialer{log: log, addr: addr, timeout: timeout, duelist: duelist}
}

func (d *Dialer) Run(ctx context.Context) error {
	dialCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", d.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", d.addr, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	log := d.log.With("duel_id", uuid.NewString(), "remote", conn.RemoteAddr().String())
	log.Info("connected to opponent")

	outcome, err := d.duelist.Run(ctx, conn, duel.RoleInitiator)
	if err != nil {
		return fmt.Errorf("duel with %s: %w", d.addr, err)
	}
	log.Info("duel finished", "outcome", outcome.String())
	return nil
}
