package duel

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrProtocolViolation = errors.New("protocol violation")
	ErrTransport         = errors.New("transport failure")
)

type Role uint8

const (
	RoleInitiator Role = iota + 1
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// ParseRole accepts the role names and the CLI command names.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "initiator", "challenge":
		return RoleInitiator, nil
	case "responder", "listen":
		return RoleResponder, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

type Outcome uint8

const (
	OutcomeUndecided Outcome = iota
	OutcomeWon
	OutcomeLost
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	default:
		return "undecided"
	}
}

// Observer is told about duel progress. It only watches: nothing it does can
// change the duel.
type Observer interface {
	ChallengeSent(name string, difficulty uint32)
	ChallengeSolved(name string, difficulty uint32, took time.Duration)
	ReplyReviewed(name string, err error)
	Finished(outcome Outcome, err error)
}

type NopObserver struct{}

func (NopObserver) ChallengeSent(string, uint32)                  {}
func (NopObserver) ChallengeSolved(string, uint32, time.Duration) {}
func (NopObserver) ReplyReviewed(string, error)                   {}
func (NopObserver) Finished(Outcome, error)                       {}
