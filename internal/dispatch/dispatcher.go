// Package dispatch computes panel state changes and sends them to telemachus.
//
// One dispatch cycle, executed atomically with respect to current state:
//	changes = incoming.Diff(current)
//	if changes present: encode and send (or log only in dry run)
//	current.Merge(incoming)
//	current.ResetMomentary()
// Send failure is logged and dropped, merge and reset still run,
// so local idea of panel state stays correct while telemachus is down.
package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/telepanel/telepanel/helpers"
	"github.com/telepanel/telepanel/internal/panel"
	"github.com/telepanel/telepanel/internal/telemachus"
	"github.com/telepanel/telepanel/log2"
)

// Sender is the network sink. Implemented by *telemachus.Client.
type Sender interface {
	URL(cmds []telemachus.Command) string
	Send(ctx context.Context, cmds []telemachus.Command) telemachus.Result
}

type Config struct {
	// DryRun logs commands but does not send them.
	DryRun    bool
	Templates map[panel.Attr]string
	Metrics   *Metrics
}

// Report describes one Process call.
type Report struct {
	Changes  *panel.State
	Commands []telemachus.Command
	Skipped  []panel.Attr
	Sent     bool
	Result   telemachus.Result
}

type Dispatcher struct {
	mu      sync.Mutex
	current *panel.State
	encoder *telemachus.Encoder
	sink    Sender
	log     *log2.Log
	dryRun  bool
	metrics *Metrics
}

func New(log *log2.Log, sink Sender, config Config) *Dispatcher {
	return &Dispatcher{
		current: panel.NewState(),
		encoder: telemachus.NewEncoder(config.Templates),
		sink:    sink,
		log:     log,
		dryRun:  config.DryRun,
		metrics: config.Metrics,
	}
}

// Current returns copy of last known dispatched state.
func (self *Dispatcher) Current() *panel.State {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.current.Clone()
}

// Process runs one dispatch cycle for incoming frame state.
// Blocks for the duration of a single send, at most one send in flight.
func (self *Dispatcher) Process(ctx context.Context, incoming *panel.State) Report {
	self.mu.Lock()
	defer self.mu.Unlock()

	report := Report{Changes: incoming.Diff(self.current)}
	if !report.Changes.Empty() {
		report.Commands, report.Skipped = self.encoder.Encode(report.Changes)
		for _, a := range report.Skipped {
			self.log.Warnf("ignoring unrecognized command %s:%s", a, readOrAbsent(report.Changes, a))
			self.metrics.incSchemaMismatch(a.String())
		}
		if len(report.Commands) != 0 {
			report.Sent, report.Result = self.post(ctx, report.Changes, report.Commands)
		}
	}

	self.current.Merge(incoming)
	self.current.ResetMomentary()
	return report
}

func (self *Dispatcher) post(ctx context.Context, changes *panel.State, cmds []telemachus.Command) (bool, telemachus.Result) {
	self.log.Info(formatChanges(changes))
	if self.dryRun {
		self.log.Debugf("   %s", self.sink.URL(cmds))
		self.log.Warnf("   not sent due to dry run")
		self.metrics.observeSend(ResultDryRun, 0)
		return false, telemachus.Result{URL: self.sink.URL(cmds)}
	}

	r := self.sink.Send(ctx, cmds)
	if r.OK() {
		self.log.Debugf("   %s (%dms)", r.URL, helpers.Milliseconds(r.Duration))
		self.metrics.observeSend(ResultOK, r.Duration)
	} else {
		// don't die if telemachus isn't listening yet
		self.log.Errorf("   %s", r.String())
		self.metrics.observeSend(ResultError, r.Duration)
	}
	return true, r
}

// ProcessFrame decodes raw line and runs dispatch cycle.
func (self *Dispatcher) ProcessFrame(ctx context.Context, raw string) (Report, time.Duration) {
	malformed := !panel.MatchFrame(raw)
	if malformed {
		self.log.Debugf("malformed frame raw=%q, decoding best effort", raw)
	}
	self.metrics.observeFrame(malformed)

	var report Report
	d := helpers.Timed(func() {
		report = self.Process(ctx, panel.Decode(raw))
	})
	self.metrics.observeCycle(d)
	return report, d
}

// "throttle=0.5, autopilot_mode=disabled"
func formatChanges(s *panel.State) string {
	present := s.ReadPresent()
	parts := make([]string, len(present))
	for i, e := range present {
		v := e.Value.String()
		if e.Attr == panel.AttrAutopilotMode && v == panel.ModeOff {
			v = "disabled"
		}
		parts[i] = e.Attr.String() + "=" + v
	}
	return strings.Join(parts, ", ")
}

func readOrAbsent(s *panel.State, a panel.Attr) panel.Value {
	v, err := s.Read(a)
	if err != nil {
		return panel.Absent
	}
	return v
}
