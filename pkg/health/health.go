// Package health serves the /livez and /readyz probes of the storefront.
//
// Every registered probe is polled in the background. A probe flips to
// failing only after FailureThreshold consecutive errors and back to passing
// after SuccessThreshold consecutive successes, so a single slow storage
// round trip does not take the pod out of rotation.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

// Kind tells which endpoint a probe contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// Probe is a registered check.
type Probe struct {
	Name             string
	Kind             Kind
	Timeout          time.Duration
	Check            CheckFunc
	FailureThreshold int
	SuccessThreshold int
}

type probeState struct {
	Probe

	passing atomic.Bool
	lastErr atomic.Pointer[string]

	// Owned by the polling goroutine.
	fails, oks int
}

func (p *probeState) poll(ctx context.Context, lg *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	err := p.Check(ctx)
	if err == nil {
		p.fails = 0
		p.oks++
		p.lastErr.Store(nil)
		if p.oks >= p.SuccessThreshold && !p.passing.Swap(true) {
			lg.Info("Probe recovered", zap.String("probe", p.Name))
		}
		return
	}

	msg := err.Error()
	p.lastErr.Store(&msg)
	p.oks = 0
	p.fails++
	if p.fails >= p.FailureThreshold && p.passing.Swap(false) {
		lg.Warn("Probe failing", zap.String("probe", p.Name), zap.Error(err))
	}
}

func (p *probeState) failure() (string, bool) {
	if p.passing.Load() {
		return "", false
	}
	if msg := p.lastErr.Load(); msg != nil {
		return *msg, true
	}
	return "check is unhealthy", true
}

// Health holds the probes and the manual readiness flag.
type Health struct {
	lg    *zap.Logger
	ready atomic.Bool

	mu     sync.Mutex
	probes []*probeState
}

// New returns a Health that is not ready until SetReady(true).
func New(lg *zap.Logger) *Health {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Health{lg: lg}
}

// Add registers p. Zero thresholds default to 3 failures and 1 success, a
// zero timeout to one second. Probes start out passing.
func (h *Health) Add(p Probe) {
	if p.FailureThreshold <= 0 {
		p.FailureThreshold = 3
	}
	if p.SuccessThreshold <= 0 {
		p.SuccessThreshold = 1
	}
	if p.Timeout <= 0 {
		p.Timeout = time.Second
	}
	s := &probeState{Probe: p}
	s.passing.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes = append(h.probes, s)
}

// AddLiveness registers a liveness probe with default thresholds.
func (h *Health) AddLiveness(name string, timeout time.Duration, check CheckFunc) {
	h.Add(Probe{Name: name, Kind: Liveness, Timeout: timeout, Check: check})
}

// AddReadiness registers a readiness probe with default thresholds.
func (h *Health) AddReadiness(name string, timeout time.Duration, check CheckFunc) {
	h.Add(Probe{Name: name, Kind: Readiness, Timeout: timeout, Check: check})
}

// Run polls every probe each interval until ctx is done.
func (h *Health) Run(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range h.snapshot(nil) {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				p.poll(ctx, h.lg)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

// SetReady toggles the manual readiness flag. It is set once the server is
// listening and cleared when shutdown begins.
func (h *Health) SetReady(ready bool) { h.ready.Store(ready) }

// IsReady reports whether the flag is set and every readiness probe passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	kind := Readiness
	return len(failures(h.snapshot(&kind))) == 0
}

func (h *Health) snapshot(kind *Kind) []*probeState {
	h.mu.Lock()
	defer h.mu.Unlock()
	if kind == nil {
		return slices.Clone(h.probes)
	}
	var out []*probeState
	for _, p := range h.probes {
		if p.Kind == *kind {
			out = append(out, p)
		}
	}
	return out
}

type failure struct{ name, msg string }

func failures(probes []*probeState) []failure {
	var out []failure
	for _, p := range probes {
		if msg, failed := p.failure(); failed {
			out = append(out, failure{name: p.Name, msg: msg})
		}
	}
	return out
}

// LiveHandler serves /livez.
func (h *Health) LiveHandler(w http.ResponseWriter, _ *http.Request) {
	kind := Liveness
	writeStatus(w, failures(h.snapshot(&kind)))
}

// ReadyHandler serves /readyz.
func (h *Health) ReadyHandler(w http.ResponseWriter, _ *http.Request) {
	kind := Readiness
	failed := failures(h.snapshot(&kind))
	if !h.ready.Load() {
		failed = append(failed, failure{name: "_readiness", msg: "service is not ready"})
	}
	writeStatus(w, failed)
}

// writeStatus writes {"status":"ok"} or 503 with
// {"status":"unhealthy","checks":{name: error}}.
func writeStatus(w http.ResponseWriter, failed []failure) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if len(failed) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		for _, f := range failed {
			e.FieldStart(f.name)
			e.Str(f.msg)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
