package daemon

import (
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/inkypi/battmon/pkg/battery"
	"github.com/inkypi/battmon/pkg/metrics"
	"github.com/inkypi/battmon/pkg/uptime"
)

// StatsLogger periodically reads battery status and writes one
// structured record per cycle to the system log, including any
// read-failure marker. It also feeds the uptime tracker.
type StatsLogger struct {
	log     logrus.FieldLogger
	monitor *battery.Monitor
	tracker *uptime.Tracker

	parser cron.Parser

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewStatsLogger(monitor *battery.Monitor, tracker *uptime.Tracker, log logrus.FieldLogger) *StatsLogger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StatsLogger{
		log:     log,
		monitor: monitor,
		tracker: tracker,
		parser:  cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Start begins logging on the given cron schedule. A running logger is
// stopped first, so Start doubles as a reschedule.
func (s *StatsLogger) Start(spec string) error {
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to parse stats schedule %q", spec)
	}

	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCh = make(chan struct{})
	s.running = true
	go s.run(schedule, s.stopCh)

	s.log.Infof("periodic stats logging started with schedule %q", spec)
	return nil
}

// Stop halts the logging loop. It is safe to call on a stopped logger.
func (s *StatsLogger) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
}

// Running reports whether the logging loop is active.
func (s *StatsLogger) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *StatsLogger) run(schedule cron.Schedule, stopCh chan struct{}) {
	for {
		next := schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.logOnce()
		}
	}
}

// logOnce emits one stats record and updates the uptime tracker.
func (s *StatsLogger) logOnce() {
	r := s.monitor.GetStatus()
	entry := s.log.WithFields(r.LogrusFields())

	if s.tracker != nil {
		if _, err := s.tracker.RecordSlice(); err != nil {
			s.log.Warnf("failed to record runtime slice: %v", err)
		}
		// While the battery reports Full the runtime-since-full-charge
		// counter stays pinned at zero; it starts accumulating as soon
		// as the status changes.
		if r.Status != nil && *r.Status == metrics.StatusFull {
			if _, err := s.tracker.SetFullChargeNow(); err != nil {
				s.log.Warnf("failed to record full charge: %v", err)
			}
		}
	}

	if r.Available {
		entry.Info("battery stats")
	} else {
		entry.Warn("battery stats unavailable")
	}
}
