package dispatch

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/telepanel/telepanel/helpers"
	"github.com/telepanel/telepanel/helpers/atomic_clock"
)

const (
	ResultOK     = "ok"
	ResultError  = "error"
	ResultDryRun = "dry_run"
)

// Metrics of dispatch cycles. Nil *Metrics is valid and records nothing.
type Metrics struct {
	frames         prom.Counter
	malformed      prom.Counter
	sends          *prom.CounterVec
	sendDuration   prom.Histogram
	cycleDuration  prom.Histogram
	schemaMismatch *prom.CounterVec
	serialRx       prom.Counter
	serialTx       prom.Counter

	lastFrame atomic_clock.Clock
	lastSend  atomic_clock.Clock
}

// NewMetrics constructs and registers collectors. reg=nil uses private registry.
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{}
	m.frames = prom.NewCounter(prom.CounterOpts{
		Namespace: "telepanel",
		Name:      "frames_total",
		Help:      "Status frames received from panel",
	})
	m.malformed = prom.NewCounter(prom.CounterOpts{
		Namespace: "telepanel",
		Name:      "frames_malformed_total",
		Help:      "Frames not matching expected shape, decoded best effort",
	})
	m.sends = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "telepanel",
		Name:      "sends_total",
		Help:      "Telemachus requests by result",
	}, []string{"result"})
	m.sendDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "telepanel",
		Name:      "send_duration_seconds",
		Help:      "Duration of telemachus requests",
		Buckets:   prom.DefBuckets,
	})
	m.cycleDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "telepanel",
		Name:      "dispatch_duration_seconds",
		Help:      "Duration of full decode-diff-send-merge cycle",
		Buckets:   prom.DefBuckets,
	})
	m.schemaMismatch = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "telepanel",
		Name:      "schema_mismatch_total",
		Help:      "Changed attributes dropped for lack of command template",
	}, []string{"attr"})
	m.serialRx = prom.NewCounter(prom.CounterOpts{
		Namespace: "telepanel",
		Name:      "serial_rx_bytes_total",
		Help:      "Bytes read from panel serial line",
	})
	m.serialTx = prom.NewCounter(prom.CounterOpts{
		Namespace: "telepanel",
		Name:      "serial_tx_bytes_total",
		Help:      "Bytes written to panel serial line",
	})
	lastFrame := prom.NewGaugeFunc(prom.GaugeOpts{
		Namespace: "telepanel",
		Name:      "last_frame_timestamp_seconds",
		Help:      "Unix time of last received frame",
	}, m.lastFrame.UnixSeconds)
	lastSend := prom.NewGaugeFunc(prom.GaugeOpts{
		Namespace: "telepanel",
		Name:      "last_send_timestamp_seconds",
		Help:      "Unix time of last successful telemachus request",
	}, m.lastSend.UnixSeconds)
	reg.MustRegister(m.frames, m.malformed, m.sends, m.sendDuration, m.cycleDuration,
		m.schemaMismatch, m.serialRx, m.serialTx, lastFrame, lastSend)
	return m
}

func (m *Metrics) observeFrame(malformed bool) {
	if m == nil {
		return
	}
	m.lastFrame.SetNow()
	m.frames.Inc()
	if malformed {
		m.malformed.Inc()
	}
}

func (m *Metrics) observeSend(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(result).Inc()
	if result == ResultDryRun {
		return
	}
	m.sendDuration.Observe(d.Seconds())
	if result == ResultOK {
		m.lastSend.SetNow()
	}
}

func (m *Metrics) observeCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) incSchemaMismatch(attr string) {
	if m == nil {
		return
	}
	m.schemaMismatch.WithLabelValues(attr).Inc()
}

// LastFrame is zero time before first frame.
func (m *Metrics) LastFrame() time.Time {
	if m == nil {
		return time.Time{}
	}
	return m.lastFrame.Time()
}

// SerialCounters for helpers.NewStatReader/NewStatWriter, nil when m is nil.
func (m *Metrics) SerialCounters() (rx, tx helpers.Counter) {
	if m == nil {
		return nil, nil
	}
	return m.serialRx, m.serialTx
}
