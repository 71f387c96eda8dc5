package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayanaadylkhanova/pow-duel/internal/entity"
)

func TestFrame_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		msg  entity.Message
	}{
		{"challenge", entity.ChallengeMessage(entity.Challenge{Name: "pow", Payload: []byte{1, 2, 3}})},
		{"challenge_empty_payload", entity.ChallengeMessage(entity.Challenge{Name: "pow"})},
		{"challenge_empty_name", entity.ChallengeMessage(entity.Challenge{})},
		{"reply", entity.ReplyMessage(entity.Solution{Payload: []byte("nonce")})},
		{"reply_empty", entity.ReplyMessage(entity.Solution{})},
		{"you_win", entity.YouWinMessage("invalid solution")},
		{"you_win_empty", entity.YouWinMessage("")},
		{"you_win_utf8", entity.YouWinMessage("¡VICTORIA!")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, WriteFrame(&buf, tc.msg))

			got, err := ReadFrame(&buf)
			require.NoError(t, err)
			assert.Equal(t, tc.msg, got)
			assert.Zero(t, buf.Len(), "frame must be consumed exactly")
		})
	}
}

func TestFrame_WireLayout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, entity.YouWinMessage("ok")))
	assert.Equal(t, []byte{0, 0, 0, 5, 0x82, 0x02, 0x62, 'o', 'k'}, buf.Bytes())

	buf.Reset()
	require.NoError(t, WriteFrame(&buf, entity.ChallengeMessage(entity.Challenge{Name: "pow"})))
	assert.Equal(t, []byte{0, 0, 0, 8, 0x82, 0x00, 0x82, 0x63, 'p', 'o', 'w', 0x40}, buf.Bytes())
}

func TestEncodeMessage_Deterministic(t *testing.T) {
	t.Parallel()

	m := entity.ChallengeMessage(entity.Challenge{Name: "pow", Payload: bytes.Repeat([]byte{7}, 300)})
	a, err := EncodeMessage(m)
	require.NoError(t, err)
	b, err := EncodeMessage(m)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeMessage_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := EncodeMessage(entity.Message{Kind: entity.Kind(9)})
	require.Error(t, err)
}

func TestReadFrame_TruncatedPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, entity.YouWinMessage("a longer reason")))
	truncated := buf.Bytes()[:buf.Len()-3]

	_, err := ReadFrame(bytes.NewReader(truncated))
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrame_HeaderOnly(t *testing.T) {
	t.Parallel()

	hdr := binary.BigEndian.AppendUint32(nil, 10)
	_, err := ReadFrame(bytes.NewReader(hdr))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrame_PartialHeader(t *testing.T) {
	t.Parallel()

	_, err := ReadFrame(bytes.NewReader([]byte{0, 0}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrame_CleanEOF(t *testing.T) {
	t.Parallel()

	_, err := ReadFrame(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_Corrupt(t *testing.T) {
	t.Parallel()

	cases := map[string][]byte{
		"empty":         {},
		"not_cbor":      {0xff, 0xff, 0xff},
		"unknown_kind":  {0x82, 0x07, 0x60},
		"wrong_arity":   {0x83, 0x02, 0x60, 0x60},
		"trailing":      {0x82, 0x02, 0x60, 0x00},
		"bad_body":      {0x82, 0x00, 0x01},
		"invalid_utf8":  {0x82, 0x02, 0x61, 0xff},
		"negative_kind": {0x82, 0x20, 0x60},
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			frame := binary.BigEndian.AppendUint32(nil, uint32(len(payload)))
			frame = append(frame, payload...)

			_, err := ReadFrame(bytes.NewReader(frame))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode), "want ErrDecode, got %v", err)
		})
	}
}

func TestReadFrame_TooLarge(t *testing.T) {
	t.Parallel()

	hdr := binary.BigEndian.AppendUint32(nil, MaxFrameSize+1)
	_, err := ReadFrame(bytes.NewReader(hdr))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteFrame_WriterError(t *testing.T) {
	t.Parallel()

	err := WriteFrame(failingWriter{}, entity.YouWinMessage("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
