package service

import (
	"context"

	"github.com/dayanaadylkhanova/pow-duel/internal/codec"
	"github.com/dayanaadylkhanova/pow-duel/internal/entity"
)

const DummyName = "dummy"

var dummySolution = []byte("fixed-solution-123")

// Dummy does no work: it answers every challenge with the same payload and
// accepts any answer. The challenge payload only carries the difficulty.
type Dummy struct{}

func NewDummy() *Dummy { return &Dummy{} }

func (d *Dummy) Name() string { return DummyName }

func (d *Dummy) CreateChallenge(difficulty uint32) (entity.Challenge, error) {
	payload, err := codec.Marshal(difficulty)
	if err != nil {
		return entity.Challenge{}, invalidInput("encode dummy input: %v", err)
	}
	return entity.Challenge{Name: DummyName, Payload: payload}, nil
}

func (d *Dummy) Difficulty(challengePayload []byte) (uint32, error) {
	var difficulty uint32
	if err := codec.Unmarshal(challengePayload, &difficulty); err != nil {
		return 0, invalidInput("decode dummy input: %v", err)
	}
	return difficulty, nil
}

func (d *Dummy) Solve(_ context.Context, payload []byte) (entity.Solution, error) {
	if _, err := d.Difficulty(payload); err != nil {
		return entity.Solution{}, err
	}
	return entity.Solution{Payload: append([]byte(nil), dummySolution...)}, nil
}

func (d *Dummy) Review(challengePayload []byte, _ entity.Solution) error {
	_, err := d.Difficulty(challengePayload)
	return err
}
