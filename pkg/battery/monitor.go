package battery

import (
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inkypi/battmon/pkg/config"
	"github.com/inkypi/battmon/pkg/metrics"
)

// readFailedMarker is appended to a bound backend's identifier when a
// read fails, so consumers can tell "no battery" from "battery
// hardware is misbehaving".
const readFailedMarker = " (read failed)"

// Monitor owns at most one bound Backend for the process lifetime and
// exposes battery metrics through GetStatus. Detection runs at most
// once, even under concurrent first access; after that the outcome is
// cached until Reset.
type Monitor struct {
	cfg   config.Config
	log   logrus.FieldLogger
	chain []NamedFactory

	mu       sync.Mutex
	probed   bool
	probedAt time.Time
	backend  Backend
}

// NewMonitor creates a monitor using the supplied detection chain, or
// DefaultChain when none is given. Detection is lazy: the chain runs
// on the first GetStatus call.
func NewMonitor(cfg config.Config, log logrus.FieldLogger, chain ...NamedFactory) *Monitor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(chain) == 0 {
		chain = DefaultChain()
	}
	return &Monitor{
		cfg:   cfg,
		log:   log,
		chain: chain,
	}
}

// GetStatus returns the current battery metrics. It never fails:
// hardware absence and read failures are both folded into the
// returned reading.
func (m *Monitor) GetStatus() metrics.Reading {
	backend := m.ensureProbed()
	if backend == nil {
		return metrics.Unavailable("none")
	}

	r, err := backend.Read()
	if err != nil {
		// The backend stays bound. A glitching battery is not the
		// same as no battery, and silently switching backends would
		// make consecutive readings incomparable.
		m.log.WithField("backend", backend.Name()).Warnf("failed to read battery metrics: %v", err)
		return metrics.Unavailable(backend.Name() + readFailedMarker)
	}
	return r
}

// Available reports whether a backend is bound, running detection
// first if it has not happened yet.
func (m *Monitor) Available() bool {
	return m.ensureProbed() != nil
}

// BackendName returns the bound backend's identifier, or "none".
func (m *Monitor) BackendName() string {
	if b := m.ensureProbed(); b != nil {
		return b.Name()
	}
	return "none"
}

// LastDetection returns when the detection chain last ran. The zero
// time means it has not run yet.
func (m *Monitor) LastDetection() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probedAt
}

// Reset discards the cached detection outcome so the next GetStatus
// runs the chain again. This is the only way a monitor re-probes;
// neither read failures nor repeated unavailable responses do.
//
// A displaced backend that holds hardware (an open I2C bus) is
// released before the next detection run can bind it again.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.backend.(io.Closer); ok {
		if err := c.Close(); err != nil {
			m.log.WithField("backend", m.backend.Name()).Warnf("failed to release backend: %v", err)
		}
	}
	m.probed = false
	m.backend = nil
}

func (m *Monitor) ensureProbed() Backend {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.probed {
		return m.backend
	}

	m.backend = m.detect()
	m.probed = true
	m.probedAt = time.Now()

	return m.backend
}

// detect walks the chain; the first factory to claim hardware wins.
func (m *Monitor) detect() Backend {
	candidates := append(append([]NamedFactory{}, m.chain...), registeredBackends()...)

	for _, c := range candidates {
		b := m.tryProbe(c)
		if b == nil {
			continue
		}
		m.log.WithField("backend", b.Name()).Info("battery monitoring backend bound")
		return b
	}

	m.log.Info("no battery monitoring hardware detected, battery metrics will not be available")
	return nil
}

// tryProbe runs one factory. Probe failures of any kind, including
// panics from custom factories, count as a decline so the chain can
// keep going.
func (m *Monitor) tryProbe(c NamedFactory) (backend Backend) {
	defer func() {
		if r := recover(); r != nil {
			m.log.WithField("backend", c.Name).Debugf("backend probe panicked: %v", r)
			backend = nil
		}
	}()

	b, err := c.Factory(m.cfg)
	if err != nil {
		m.log.WithField("backend", c.Name).Debugf("backend declined: %v", err)
		return nil
	}
	return b
}
