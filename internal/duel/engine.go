// Package duel runs the turn-based challenge protocol over one connection.
package duel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/dayanaadylkhanova/pow-duel/internal/codec"
	"github.com/dayanaadylkhanova/pow-duel/internal/entity"
	"github.com/dayanaadylkhanova/pow-duel/internal/service"
)

const (
	DefaultStartSolver            = service.PoWName
	DefaultStartDifficulty uint32 = 4
)

type Registry interface {
	Get(name string) (service.Solver, error)
}

// Config sets the opening challenge of the initiator.
type Config struct {
	StartSolver     string
	StartDifficulty uint32
}

// Engine holds what duels share: the registry, logger and observer. Each Run
// gets its own state.
type Engine struct {
	log *slog.Logger
	reg Registry
	cfg Config
	obs Observer
}

func New(log *slog.Logger, reg Registry, cfg Config, obs Observer) *Engine {
	if cfg.StartSolver == "" {
		cfg.StartSolver = DefaultStartSolver
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Engine{log: log, reg: reg, cfg: cfg, obs: obs}
}

// Run plays one duel on conn until a side declares victory or the duel
// fails. Errors wrap ErrProtocolViolation, ErrTransport, a solver error from
// our own Solve, or the context error.
func (e *Engine) Run(ctx context.Context, conn io.ReadWriter, role Role) (Outcome, error) {
	m := &machine{
		log:   e.log.With("role", role.String()),
		reg:   e.reg,
		obs:   e.obs,
		r:     bufio.NewReader(conn),
		w:     bufio.NewWriter(conn),
		state: awaitingChallenge{},
	}

	outcome, err := m.run(ctx, role, e.cfg)
	e.obs.Finished(outcome, err)
	return outcome, err
}

// state is either awaitingChallenge or awaitingReply; the latter holds the
// one challenge we have outstanding.
type state interface{ isState() }

type awaitingChallenge struct{}

type awaitingReply struct{ challenge entity.Challenge }

func (awaitingChallenge) isState() {}
func (awaitingReply) isState()     {}

type machine struct {
	log   *slog.Logger
	reg   Registry
	obs   Observer
	r     *bufio.Reader
	w     *bufio.Writer
	state state
}

func (m *machine) run(ctx context.Context, role Role, cfg Config) (Outcome, error) {
	switch role {
	case RoleInitiator:
		if err := m.open(cfg); err != nil {
			return OutcomeUndecided, err
		}
	case RoleResponder:
	default:
		return OutcomeUndecided, fmt.Errorf("unknown %s", role)
	}

	for {
		if err := ctx.Err(); err != nil {
			return OutcomeUndecided, err
		}

		msg, err := codec.ReadFrame(m.r)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return OutcomeUndecided, ctxErr
			}
			return OutcomeUndecided, fmt.Errorf("%w: %w", ErrTransport, err)
		}

		switch msg.Kind {
		case entity.KindChallenge:
			if err := m.onChallenge(ctx, msg.Challenge); err != nil {
				return OutcomeUndecided, err
			}
		case entity.KindReply:
			won, err := m.onReply(msg.Solution)
			if err != nil {
				return OutcomeUndecided, err
			}
			if won {
				return OutcomeWon, nil
			}
		case entity.KindYouWin:
			m.log.Info("duel lost", "reason", msg.Reason)
			return OutcomeLost, nil
		default:
			return OutcomeUndecided, fmt.Errorf("%w: unexpected %s", ErrProtocolViolation, msg.Kind)
		}
	}
}

func (m *machine) open(cfg Config) error {
	solver, err := m.reg.Get(cfg.StartSolver)
	if err != nil {
		return fmt.Errorf("opening challenge: %w", err)
	}
	ch, err := solver.CreateChallenge(cfg.StartDifficulty)
	if err != nil {
		return fmt.Errorf("create opening %s challenge: %w", solver.Name(), err)
	}

	if err := m.send(entity.ChallengeMessage(ch)); err != nil {
		return err
	}
	m.state = awaitingReply{challenge: ch}
	m.obs.ChallengeSent(ch.Name, cfg.StartDifficulty)
	m.log.Info("challenge sent", "name", ch.Name, "difficulty", cfg.StartDifficulty)
	return nil
}

func (m *machine) onChallenge(ctx context.Context, c entity.Challenge) error {
	if pending, ok := m.state.(awaitingReply); ok {
		return fmt.Errorf("%w: %q challenge received while reply to %q is outstanding",
			ErrProtocolViolation, c.Name, pending.challenge.Name)
	}

	solver, err := m.reg.Get(c.Name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	m.log.Info("challenge received", "name", c.Name)

	start := time.Now()
	sol, err := solver.Solve(ctx, c.Payload)
	if err != nil {
		return fmt.Errorf("solve %s challenge: %w", c.Name, err)
	}
	took := time.Since(start)

	difficulty, err := solver.Difficulty(c.Payload)
	if err != nil {
		return fmt.Errorf("read %s difficulty: %w", c.Name, err)
	}
	m.obs.ChallengeSolved(c.Name, difficulty, took)
	m.log.Info("challenge solved", "name", c.Name, "difficulty", difficulty, "took", took.String())

	nextDifficulty := difficulty
	if nextDifficulty < math.MaxUint32 {
		nextDifficulty++
	}
	next, err := solver.CreateChallenge(nextDifficulty)
	if err != nil {
		return fmt.Errorf("create next %s challenge: %w", c.Name, err)
	}

	// Reply must precede the next challenge; send flushes both together.
	if err := codec.WriteFrame(m.w, entity.ReplyMessage(sol)); err != nil {
		return m.transportErr(err)
	}
	if err := m.send(entity.ChallengeMessage(next)); err != nil {
		return err
	}
	m.state = awaitingReply{challenge: next}
	m.obs.ChallengeSent(next.Name, nextDifficulty)
	m.log.Info("challenge sent", "name", next.Name, "difficulty", nextDifficulty)
	return nil
}

// onReply reviews the opponent's answer to our outstanding challenge and
// reports whether we won.
func (m *machine) onReply(sol entity.Solution) (bool, error) {
	pending, ok := m.state.(awaitingReply)
	if !ok {
		return false, fmt.Errorf("%w: reply received with no outstanding challenge", ErrProtocolViolation)
	}
	name := pending.challenge.Name

	solver, err := m.reg.Get(name)
	if err != nil {
		return false, fmt.Errorf("review %s reply: %w", name, err)
	}

	reviewErr := solver.Review(pending.challenge.Payload, sol)
	m.obs.ReplyReviewed(name, reviewErr)
	if reviewErr == nil {
		m.state = awaitingChallenge{}
		m.log.Info("reply accepted", "name", name)
		return false, nil
	}

	reason := fmt.Sprintf("invalid solution to %s challenge: %v", name, reviewErr)
	if err := m.send(entity.YouWinMessage(reason)); err != nil {
		return false, err
	}
	m.log.Info("duel won", "reason", reason)
	return true, nil
}

func (m *machine) send(msg entity.Message) error {
	if err := codec.WriteFrame(m.w, msg); err != nil {
		return m.transportErr(err)
	}
	if err := m.w.Flush(); err != nil {
		return m.transportErr(err)
	}
	return nil
}

func (m *machine) transportErr(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
