package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dayanaadylkhanova/pow-duel/internal/entity"
)

// Solver creates, solves and judges challenges of one kind.
type Solver interface {
	Name() string
	CreateChallenge(difficulty uint32) (entity.Challenge, error)
	Solve(ctx context.Context, payload []byte) (entity.Solution, error)
	// Review must be a pure function of its inputs so that either peer
	// reaches the same verdict.
	Review(challengePayload []byte, sol entity.Solution) error
	// Difficulty reads the difficulty back out of an encoded challenge.
	Difficulty(challengePayload []byte) (uint32, error)
}

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrComputationFailed = errors.New("computation failed")
)

// SolverError is returned by solver operations. Kind is ErrInvalidInput or
// ErrComputationFailed and is matched by errors.Is.
type SolverError struct {
	Kind   error
	Detail string
}

func (e *SolverError) Error() string { return e.Kind.Error() + ": " + e.Detail }

func (e *SolverError) Unwrap() error { return e.Kind }

func invalidInput(format string, args ...any) error {
	return &SolverError{Kind: ErrInvalidInput, Detail: fmt.Sprintf(format, args...)}
}

func computationFailed(format string, args ...any) error {
	return &SolverError{Kind: ErrComputationFailed, Detail: fmt.Sprintf(format, args...)}
}
