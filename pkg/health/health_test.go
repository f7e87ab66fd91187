package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, fn http.HandlerFunc) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, resp
}

func TestLiveWithoutChecks(t *testing.T) {
	s := New(nil)

	code, resp := probe(t, s.Live)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
}

func TestReadyzRequiresManualSwitch(t *testing.T) {
	s := New(nil)

	code, resp := probe(t, s.Readyz)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, []string{"ready"}, resp.Failed)
	assert.False(t, s.Ready())

	s.SetReady(true)
	code, _ = probe(t, s.Readyz)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, s.Ready())
}

func TestFailureThreshold(t *testing.T) {
	s := New(nil)
	s.SetReady(true)
	s.Add(Check{Name: "postgres", Kind: Readiness, Func: func(context.Context) error {
		return errors.New("connection refused")
	}})
	c := s.checks[0]

	assert.False(t, c.observe(c.run(context.Background())))
	assert.False(t, c.observe(c.run(context.Background())))
	assert.True(t, s.Ready(), "two failures stay below the threshold")

	assert.True(t, c.observe(c.run(context.Background())))
	assert.False(t, s.Ready())

	code, resp := probe(t, s.Readyz)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["postgres"])

	code, _ = probe(t, s.Live)
	assert.Equal(t, http.StatusOK, code, "readiness failures do not affect liveness")
}

func TestSuccessThreshold(t *testing.T) {
	s := New(nil)
	var healthy atomic.Bool
	s.Add(Check{
		Name:             "flaky",
		Kind:             Liveness,
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Func: func(context.Context) error {
			if healthy.Load() {
				return nil
			}
			return errors.New("down")
		},
	})
	c := s.checks[0]

	c.observe(c.run(context.Background()))
	code, _ := probe(t, s.Live)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	healthy.Store(true)
	assert.False(t, c.observe(c.run(context.Background())))
	assert.True(t, c.observe(c.run(context.Background())))

	code, _ = probe(t, s.Live)
	assert.Equal(t, http.StatusOK, code)
}

func TestCheckTimeout(t *testing.T) {
	s := New(nil)
	s.Add(Check{Name: "slow", Timeout: 10 * time.Millisecond, Func: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	assert.ErrorIs(t, s.checks[0].run(context.Background()), context.DeadlineExceeded)
}

func TestStartRunsChecks(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	s.Add(Check{Name: "counter", Func: func(context.Context) error {
		calls.Add(1)
		return nil
	}})

	s.Start(context.Background(), 5*time.Millisecond)
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
	s.Stop()
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	assert.NoError(t, PingCheck(fakePinger{})(context.Background()))
	assert.ErrorContains(t, PingCheck(fakePinger{err: errors.New("refused")})(context.Background()), "ping: refused")

	assert.NoError(t, GoroutineCheck(1<<20)(context.Background()))
	assert.Error(t, GoroutineCheck(0)(context.Background()))
}
