package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayanaadylkhanova/pow-duel/internal/duel"
	"github.com/dayanaadylkhanova/pow-duel/internal/service"
)

func TestCollector_CountsProgress(t *testing.T) {
	t.Parallel()

	c := New()
	c.ChallengeSent("pow", 4)
	c.ChallengeSent("pow", 6)
	c.ChallengeSolved("pow", 5, 20*time.Millisecond)
	c.ReplyReviewed("pow", nil)
	c.ReplyReviewed("pow", &service.SolverError{Kind: service.ErrComputationFailed, Detail: "x"})
	c.ReplyReviewed("pow", &service.SolverError{Kind: service.ErrInvalidInput, Detail: "x"})
	c.ReplyReviewed("pow", errors.New("other"))
	c.Finished(duel.OutcomeWon, nil)
	c.Finished(duel.OutcomeUndecided, duel.ErrTransport)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.challengesSent.WithLabelValues("pow")))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.lastDifficulty))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reviews.WithLabelValues("pow", "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reviews.WithLabelValues("pow", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reviews.WithLabelValues("pow", "invalid_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reviews.WithLabelValues("pow", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.duels.WithLabelValues("won")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.duels.WithLabelValues("aborted")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.solveSeconds))
}

func TestCollector_Handler(t *testing.T) {
	t.Parallel()

	c := New()
	c.ChallengeSent("dummy", 1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `duel_challenges_sent_total{solver="dummy"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestCollector_Serve(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
