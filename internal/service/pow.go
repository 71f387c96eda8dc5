package service

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dayanaadylkhanova/pow-duel/internal/codec"
	"github.com/dayanaadylkhanova/pow-duel/internal/entity"
)

const (
	PoWName = "pow"

	DefaultPoWLabel              = "duel-pow"
	DefaultPoWMaxAttempts uint64 = 500_000_000

	// nonces handed to a worker per cursor step
	chunkSize uint64 = 1 << 14
)

// PoWInput asks for a nonce in [StartNonce, StartNonce+MaxAttempts) such that
// the hex SHA-256 of Data followed by the little-endian nonce starts with
// Difficulty '0' characters.
type PoWInput struct {
	_           struct{} `cbor:",toarray"`
	Data        string
	Difficulty  uint32
	StartNonce  uint64
	MaxAttempts uint64
}

type PoWOutput struct {
	_     struct{} `cbor:",toarray"`
	Nonce uint64
}

// end is the exclusive upper bound of the search range, saturated at 2^64-1.
func (in PoWInput) end() uint64 {
	if in.MaxAttempts > math.MaxUint64-in.StartNonce {
		return math.MaxUint64
	}
	return in.StartNonce + in.MaxAttempts
}

func (in PoWInput) contains(nonce uint64) bool {
	return nonce >= in.StartNonce && nonce < in.end()
}

// Verify reports whether nonce answers in. Solve and Review both go through
// it.
func Verify(in PoWInput, nonce uint64) bool {
	if !in.contains(nonce) {
		return false
	}
	return newPredicate(in).check(nonce)
}

// predicate owns a reusable data||nonce buffer so the search loop does not
// allocate per hash.
type predicate struct {
	buf        []byte
	off        int
	difficulty uint32
}

func newPredicate(in PoWInput) *predicate {
	buf := make([]byte, len(in.Data)+8)
	copy(buf, in.Data)
	return &predicate{buf: buf, off: len(in.Data), difficulty: in.Difficulty}
}

func (p *predicate) check(nonce uint64) bool {
	binary.LittleEndian.PutUint64(p.buf[p.off:], nonce)
	sum := sha256.Sum256(p.buf)
	return zeroHexPrefix(sum, p.difficulty)
}

// zeroHexPrefix reports whether the lowercase hex encoding of sum starts with
// n '0' characters, one nibble per character.
func zeroHexPrefix(sum [sha256.Size]byte, n uint32) bool {
	if n > 2*sha256.Size {
		return false
	}
	for i := uint32(0); i < n; i++ {
		b := sum[i/2]
		if i%2 == 0 {
			b >>= 4
		}
		if b&0x0f != 0 {
			return false
		}
	}
	return true
}

type PoW struct {
	label       string
	maxAttempts uint64
	workers     int
}

type PoWOption func(*PoW)

// WithLabel sets the prefix of the challenge data.
func WithLabel(label string) PoWOption {
	return func(p *PoW) {
		if label != "" {
			p.label = label
		}
	}
}

// WithMaxAttempts sets the search budget written into new challenges.
func WithMaxAttempts(n uint64) PoWOption {
	return func(p *PoW) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithWorkers sets the search pool size; n <= 0 means GOMAXPROCS.
func WithWorkers(n int) PoWOption {
	return func(p *PoW) { p.workers = n }
}

func NewPoW(opts ...PoWOption) *PoW {
	p := &PoW{label: DefaultPoWLabel, maxAttempts: DefaultPoWMaxAttempts}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PoW) Name() string { return PoWName }

func (p *PoW) CreateChallenge(difficulty uint32) (entity.Challenge, error) {
	payload, err := codec.Marshal(PoWInput{
		Data:        fmt.Sprintf("%s-%d", p.label, difficulty),
		Difficulty:  difficulty,
		StartNonce:  0,
		MaxAttempts: p.maxAttempts,
	})
	if err != nil {
		return entity.Challenge{}, invalidInput("encode pow input: %v", err)
	}
	return entity.Challenge{Name: PoWName, Payload: payload}, nil
}

func (p *PoW) Difficulty(challengePayload []byte) (uint32, error) {
	in, err := decodePoWInput(challengePayload)
	if err != nil {
		return 0, err
	}
	return in.Difficulty, nil
}

func (p *PoW) Solve(ctx context.Context, payload []byte) (entity.Solution, error) {
	in, err := decodePoWInput(payload)
	if err != nil {
		return entity.Solution{}, err
	}
	if in.MaxAttempts == 0 {
		return entity.Solution{}, invalidInput("max attempts must be positive")
	}

	nonce, ok, err := p.search(ctx, in)
	if err != nil {
		return entity.Solution{}, err
	}
	if !ok {
		return entity.Solution{}, computationFailed(
			"no nonce in [%d, %d) meets difficulty %d", in.StartNonce, in.end(), in.Difficulty)
	}

	out, err := codec.Marshal(PoWOutput{Nonce: nonce})
	if err != nil {
		return entity.Solution{}, computationFailed("encode pow output: %v", err)
	}
	return entity.Solution{Payload: out}, nil
}

func (p *PoW) Review(challengePayload []byte, sol entity.Solution) error {
	in, err := decodePoWInput(challengePayload)
	if err != nil {
		return err
	}
	var out PoWOutput
	if err := codec.Unmarshal(sol.Payload, &out); err != nil {
		return invalidInput("decode pow output: %v", err)
	}

	if !Verify(in, out.Nonce) {
		if !in.contains(out.Nonce) {
			return computationFailed("nonce %d outside [%d, %d)", out.Nonce, in.StartNonce, in.end())
		}
		return computationFailed("nonce %d does not meet difficulty %d", out.Nonce, in.Difficulty)
	}
	return nil
}

var errFound = errors.New("nonce found")

// search splits the range into chunks pulled by a fixed pool of workers. The
// first hit is kept in a one-slot channel and cancels the rest.
func (p *PoW) search(ctx context.Context, in PoWInput) (uint64, bool, error) {
	span := in.end() - in.StartNonce
	chunks := span / chunkSize
	if span%chunkSize != 0 {
		chunks++
	}

	workers := p.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if uint64(workers) > chunks {
		workers = int(chunks)
	}

	var next atomic.Uint64
	found := make(chan uint64, 1)

	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			pred := newPredicate(in)
			for gctx.Err() == nil {
				idx := next.Add(1) - 1
				if idx >= chunks {
					return nil
				}
				lo := in.StartNonce + idx*chunkSize
				hi := lo + min(chunkSize, in.end()-lo)
				for n := lo; n < hi; n++ {
					if pred.check(n) {
						select {
						case found <- n:
						default:
						}
						return errFound
					}
				}
			}
			return nil
		})
	}
	err := g.Wait()

	select {
	case n := <-found:
		return n, true, nil
	default:
	}
	if err != nil && !errors.Is(err, errFound) {
		return 0, false, err
	}
	if err := ctx.Err(); err != nil {
		return 0, false, fmt.Errorf("pow search: %w", err)
	}
	return 0, false, nil
}

func decodePoWInput(payload []byte) (PoWInput, error) {
	var in PoWInput
	if err := codec.Unmarshal(payload, &in); err != nil {
		return PoWInput{}, invalidInput("decode pow input: %v", err)
	}
	return in, nil
}
