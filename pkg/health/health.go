// Package health serves liveness and readiness probes backed by periodic
// background checks.
//
// A check flips to failing only after FailureThreshold consecutive errors
// and back to passing after SuccessThreshold consecutive successes, so a
// single slow database ping does not take the service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// CheckFunc reports the health of one dependency.
type CheckFunc func(ctx context.Context) error

// Kind tells which probe a check contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

func (k Kind) String() string {
	if k == Liveness {
		return "liveness"
	}
	return "readiness"
}

// Check describes a registered check.
type Check struct {
	Name    string
	Kind    Kind
	Timeout time.Duration
	Func    CheckFunc

	// Zero thresholds default to 3 failures and 1 success.
	FailureThreshold int
	SuccessThreshold int
}

type check struct {
	Check

	passing atomic.Bool
	lastErr atomic.Pointer[string]

	// Touched only by the goroutine running the check.
	fails, oks int
}

// observe records the outcome of one run and reports whether the check
// changed state.
func (c *check) observe(err error) (changed bool) {
	if err != nil {
		msg := err.Error()
		c.lastErr.Store(&msg)
		c.oks = 0
		c.fails++
		if c.fails >= c.FailureThreshold && c.passing.Load() {
			c.passing.Store(false)
			return true
		}
		return false
	}

	c.lastErr.Store(nil)
	c.fails = 0
	c.oks++
	if c.oks >= c.SuccessThreshold && !c.passing.Load() {
		c.passing.Store(true)
		return true
	}
	return false
}

func (c *check) run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	return c.Func(ctx)
}

// Service holds the registered checks and the manual readiness switch.
type Service struct {
	lg    *zap.Logger
	ready atomic.Bool

	mu     sync.Mutex
	checks []*check
	stop   context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Service that is not ready until SetReady(true).
func New(lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{lg: lg}
}

// Add registers c. Checks start out passing.
func (s *Service) Add(c Check) {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}

	cc := &check{Check: c}
	cc.passing.Store(true)

	s.mu.Lock()
	s.checks = append(s.checks, cc)
	s.mu.Unlock()
}

// Start runs every check immediately and then once per interval until
// Stop is called or ctx is done.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.stop = cancel
	checks := append([]*check(nil), s.checks...)
	s.mu.Unlock()

	for _, c := range checks {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, c, interval)
		}()
	}
}

func (s *Service) loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.observe(c.run(ctx)) {
			s.lg.Warn("Health check changed state",
				zap.String("check", c.Name),
				zap.Stringer("kind", c.Kind),
				zap.Bool("passing", c.passing.Load()),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the background checks and waits for them to return.
func (s *Service) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.wg.Wait()
}

// SetReady flips the manual readiness switch, typically to true after
// start-up and to false when draining.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// failures lists the failing checks of kind k by name.
func (s *Service) failures(k Kind) map[string]string {
	s.mu.Lock()
	checks := append([]*check(nil), s.checks...)
	s.mu.Unlock()

	out := make(map[string]string)
	for _, c := range checks {
		if c.Kind != k || c.passing.Load() {
			continue
		}
		msg := "check is failing"
		if p := c.lastErr.Load(); p != nil {
			msg = *p
		}
		out[c.Name] = msg
	}
	return out
}

// Ready reports whether the service is marked ready and every readiness
// check passes.
func (s *Service) Ready() bool {
	return s.ready.Load() && len(s.failures(Readiness)) == 0
}

// Response is the body of a probe response.
type Response struct {
	Status string            `json:"status"`
	Failed []string          `json:"failed,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live serves the liveness probe.
func (s *Service) Live(w http.ResponseWriter, _ *http.Request) {
	write(w, s.failures(Liveness))
}

// Readyz serves the readiness probe. It also fails while the manual
// readiness switch is off.
func (s *Service) Readyz(w http.ResponseWriter, _ *http.Request) {
	failures := s.failures(Readiness)
	if !s.ready.Load() {
		failures["ready"] = "service is not ready"
	}
	write(w, failures)
}

func write(w http.ResponseWriter, failures map[string]string) {
	resp := Response{Status: "ok"}
	status := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unavailable"
		resp.Checks = failures
		for name := range failures {
			resp.Failed = append(resp.Failed, name)
		}
		sort.Strings(resp.Failed)
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
