package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/dayanaadylkhanova/pow-duel/internal/entity"
)

const (
	headerSize = 4
	// MaxFrameSize bounds the payload a reader will allocate for.
	MaxFrameSize = 16 << 20
)

var (
	ErrDecode        = errors.New("decode message")
	ErrFrameTooLarge = errors.New("frame too large")
)

type envelope struct {
	_    struct{} `cbor:",toarray"`
	Kind entity.Kind
	Body cbor.RawMessage
}

func EncodeMessage(m entity.Message) ([]byte, error) {
	var body any
	switch m.Kind {
	case entity.KindChallenge:
		body = m.Challenge
	case entity.KindReply:
		body = m.Solution
	case entity.KindYouWin:
		body = m.Reason
	default:
		return nil, fmt.Errorf("encode message: unknown %s", m.Kind)
	}
	raw, err := Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", m.Kind, err)
	}
	return Marshal(envelope{Kind: m.Kind, Body: raw})
}

func DecodeMessage(data []byte) (entity.Message, error) {
	var env envelope
	if err := Unmarshal(data, &env); err != nil {
		return entity.Message{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	switch env.Kind {
	case entity.KindChallenge:
		var c entity.Challenge
		if err := Unmarshal(env.Body, &c); err != nil {
			return entity.Message{}, fmt.Errorf("%w: challenge: %w", ErrDecode, err)
		}
		c.Payload = nilIfEmpty(c.Payload)
		return entity.ChallengeMessage(c), nil
	case entity.KindReply:
		var s entity.Solution
		if err := Unmarshal(env.Body, &s); err != nil {
			return entity.Message{}, fmt.Errorf("%w: reply: %w", ErrDecode, err)
		}
		s.Payload = nilIfEmpty(s.Payload)
		return entity.ReplyMessage(s), nil
	case entity.KindYouWin:
		var reason string
		if err := Unmarshal(env.Body, &reason); err != nil {
			return entity.Message{}, fmt.Errorf("%w: you-win: %w", ErrDecode, err)
		}
		return entity.YouWinMessage(reason), nil
	default:
		return entity.Message{}, fmt.Errorf("%w: unknown %s", ErrDecode, env.Kind)
	}
}

// WriteFrame writes [4-byte big-endian length][encoded message] in a single
// Write call.
func WriteFrame(w io.Writer, m entity.Message) error {
	payload, err := EncodeMessage(m)
	if err != nil {
		return err
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	frame := make([]byte, headerSize, headerSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame. A stream closed before the header yields io.EOF,
// a stream closed inside a frame yields io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) (entity.Message, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return entity.Message{}, fmt.Errorf("read frame header: %w", err)
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return entity.Message{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return entity.Message{}, fmt.Errorf("read frame payload: %w", err)
	}
	return DecodeMessage(payload)
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
