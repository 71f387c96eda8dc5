package entity

import "fmt"

// Challenge is a named task one peer poses to the other. Name selects the
// solver kind, Payload is solver-specific.
type Challenge struct {
	_       struct{} `cbor:",toarray"`
	Name    string
	Payload []byte
}

// Solution is an opaque answer to one Challenge.
type Solution struct {
	_       struct{} `cbor:",toarray"`
	Payload []byte
}

type Kind uint8

// Wire tags follow declaration order.
const (
	KindChallenge Kind = iota
	KindReply
	KindYouWin
)

func (k Kind) String() string {
	switch k {
	case KindChallenge:
		return "challenge"
	case KindReply:
		return "reply"
	case KindYouWin:
		return "you-win"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Message is the protocol envelope. Only the field matching Kind is set.
type Message struct {
	Kind      Kind
	Challenge Challenge
	Solution  Solution
	Reason    string
}

func ChallengeMessage(c Challenge) Message { return Message{Kind: KindChallenge, Challenge: c} }

func ReplyMessage(s Solution) Message { return Message{Kind: KindReply, Solution: s} }

func YouWinMessage(reason string) Message { return Message{Kind: KindYouWin, Reason: reason} }
