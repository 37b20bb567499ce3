package dispatch

import (
	"context"
	"fmt"
	"io"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telepanel/telepanel/helpers"
	"github.com/telepanel/telepanel/internal/panel"
	"github.com/telepanel/telepanel/internal/telemachus"
	"github.com/telepanel/telepanel/log2"
	"github.com/temoto/alive/v2"
)

const testURL = "http://127.0.0.1:8085/telemachus/datalink"

type denv struct {
	d       *Dispatcher
	mock    *helpers.MockHTTP
	metrics *Metrics
	reg     *prom.Registry
}

func newTestEnv(t testing.TB, mock *helpers.MockHTTP, config Config) *denv {
	if mock == nil {
		mock = &helpers.MockHTTP{}
	}
	log := log2.NewTest(t, log2.LDebug)
	client, err := telemachus.NewClient(log.Named("telemachus"), testURL, mock.Client())
	require.NoError(t, err)
	reg := prom.NewRegistry()
	config.Metrics = NewMetrics(reg)
	return &denv{
		d:       New(log.Named("dispatch"), client, config),
		mock:    mock,
		metrics: config.Metrics,
		reg:     reg,
	}
}

func mustState(t testing.TB, entries ...panel.Entry) *panel.State {
	s, err := panel.NewStateEntries(entries...)
	require.NoError(t, err)
	return s
}

func TestProcess(t *testing.T) {
	t.Parallel()

	t.Run("posts-diff", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil, Config{})
		report := env.d.Process(context.Background(), mustState(t,
			panel.Entry{Attr: panel.AttrThrottle, Value: panel.Int(100)},
			panel.Entry{Attr: panel.AttrSAS, Value: panel.Bool(true)},
		))
		assert.True(t, report.Sent)
		assert.True(t, report.Result.OK())
		assert.Equal(t, []string{testURL + "?a=f.setThrottle%5B100%5D&b=f.sas%5BTrue%5D"}, env.mock.URLs())
	})

	t.Run("stores-current", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil, Config{})
		incoming := mustState(t,
			panel.Entry{Attr: panel.AttrThrottle, Value: panel.Int(100)},
			panel.Entry{Attr: panel.AttrSAS, Value: panel.Bool(true)},
		)
		env.d.Process(context.Background(), incoming)
		assert.True(t, env.d.Current().Equal(incoming))
	})

	t.Run("does-not-persist-momentary", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil, Config{})
		env.d.Process(context.Background(), mustState(t,
			panel.Entry{Attr: panel.AttrThrottle, Value: panel.Int(100)},
			panel.Entry{Attr: panel.AttrStage, Value: panel.Bool(true)},
		))
		v, err := env.d.Current().Read(panel.AttrStage)
		require.NoError(t, err)
		assert.True(t, v.IsAbsent())
	})

	t.Run("empty-no-call", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil, Config{})
		report := env.d.Process(context.Background(), panel.NewState())
		assert.False(t, report.Sent)
		assert.Empty(t, report.Commands)
		assert.Empty(t, env.mock.URLs())
	})
}

func TestEndToEnd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, Config{})
	ctx := context.Background()

	r1 := env.d.Process(ctx, mustState(t, panel.Entry{Attr: panel.AttrThrottle, Value: panel.Float(1.0)}))
	r2 := env.d.Process(ctx, mustState(t,
		panel.Entry{Attr: panel.AttrThrottle, Value: panel.Float(1.0)},
		panel.Entry{Attr: panel.AttrStage, Value: panel.Bool(true)},
	))
	assert.True(t, r1.Sent)
	assert.True(t, r2.Sent)
	assert.Equal(t, []string{
		testURL + "?a=f.setThrottle%5B1.0%5D",
		testURL + "?a=f.stage",
	}, env.mock.URLs())

	v, err := env.d.Current().Read(panel.AttrStage)
	require.NoError(t, err)
	assert.True(t, v.IsAbsent())

	// same frame again: stage is re-sent, it was reset after dispatch
	r3 := env.d.Process(ctx, mustState(t,
		panel.Entry{Attr: panel.AttrThrottle, Value: panel.Float(1.0)},
		panel.Entry{Attr: panel.AttrStage, Value: panel.Bool(true)},
	))
	assert.Equal(t, "a=f.stage", telemachus.Query(r3.Commands))
	assert.Len(t, env.mock.URLs(), 3)
}

func TestProcessFrames(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, Config{})
	ctx := context.Background()
	frames := []string{
		"---0",   // sas..brakes off, autopilot off
		"---0",   // no change
		"50-0",   // throttle
		"502132", // autopilot normalplus, mask 132 = rcs(4) + action_group_2(128)
		"502132", // action_group_2 re-sent, persistent unchanged
	}
	var reports []Report
	for _, f := range frames {
		r, _ := env.d.ProcessFrame(ctx, f)
		reports = append(reports, r)
	}
	assert.Equal(t, "a=mj.smartassoff&b=f.sas%5BFalse%5D&c=f.rcs%5BFalse%5D&d=f.light%5BFalse%5D&e=f.gear%5BFalse%5D&f=f.brake%5BFalse%5D",
		telemachus.Query(reports[0].Commands))
	assert.False(t, reports[1].Sent)
	assert.Equal(t, "a=f.setThrottle%5B0.5%5D", telemachus.Query(reports[2].Commands))
	assert.Equal(t, "a=mj.normalplus&b=f.rcs%5BTrue%5D&c=f.ag2", telemachus.Query(reports[3].Commands))
	assert.Equal(t, "a=f.ag2", telemachus.Query(reports[4].Commands))
	assert.Len(t, env.mock.URLs(), 4)

	assert.Equal(t, 5.0, testutil.ToFloat64(env.metrics.frames))
	assert.Equal(t, 4.0, testutil.ToFloat64(env.metrics.sends.WithLabelValues(ResultOK)))
	assert.False(t, env.metrics.LastFrame().IsZero())
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	mock := &helpers.MockHTTP{Err: fmt.Errorf("connection refused")}
	env := newTestEnv(t, mock, Config{})
	ctx := context.Background()
	incoming := mustState(t,
		panel.Entry{Attr: panel.AttrGear, Value: panel.Bool(true)},
		panel.Entry{Attr: panel.AttrActionGroup1, Value: panel.Bool(true)},
	)
	report := env.d.Process(ctx, incoming)
	assert.True(t, report.Sent)
	assert.False(t, report.Result.OK())

	// state still merged and reset
	cur := env.d.Current()
	v, _ := cur.Read(panel.AttrGear)
	assert.Equal(t, panel.Bool(true), v)
	v, _ = cur.Read(panel.AttrActionGroup1)
	assert.True(t, v.IsAbsent())

	// gear is not re-sent on next identical frame
	report = env.d.Process(ctx, mustState(t, panel.Entry{Attr: panel.AttrGear, Value: panel.Bool(true)}))
	assert.False(t, report.Sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.sends.WithLabelValues(ResultError)))
}

func TestDryRun(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, Config{DryRun: true})
	report := env.d.Process(context.Background(), mustState(t, panel.Entry{Attr: panel.AttrLights, Value: panel.Bool(true)}))
	assert.False(t, report.Sent)
	assert.Equal(t, testURL+"?a=f.light%5BTrue%5D", report.Result.URL)
	assert.Empty(t, env.mock.URLs())
	v, _ := env.d.Current().Read(panel.AttrLights)
	assert.Equal(t, panel.Bool(true), v)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.sends.WithLabelValues(ResultDryRun)))
}

func TestUnrecognizedCommand(t *testing.T) {
	t.Parallel()

	templates := make(map[panel.Attr]string)
	for a, tpl := range telemachus.DefaultTemplates {
		if a != panel.AttrBrakes {
			templates[a] = tpl
		}
	}
	env := newTestEnv(t, nil, Config{Templates: templates})
	report := env.d.Process(context.Background(), mustState(t,
		panel.Entry{Attr: panel.AttrBrakes, Value: panel.Bool(true)},
		panel.Entry{Attr: panel.AttrStage, Value: panel.Bool(true)},
	))
	assert.Equal(t, []panel.Attr{panel.AttrBrakes}, report.Skipped)
	assert.True(t, report.Sent)
	assert.Equal(t, []string{testURL + "?a=f.stage"}, env.mock.URLs())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.schemaMismatch.WithLabelValues("brakes")))

	// only unrecognized changes: nothing to send
	report = env.d.Process(context.Background(), mustState(t, panel.Entry{Attr: panel.AttrBrakes, Value: panel.Bool(false)}))
	assert.False(t, report.Sent)
	assert.Len(t, env.mock.URLs(), 1)
}

func TestFormatChanges(t *testing.T) {
	t.Parallel()

	s := mustState(t,
		panel.Entry{Attr: panel.AttrThrottle, Value: panel.Float(0.5)},
		panel.Entry{Attr: panel.AttrAutopilotMode, Value: panel.Enum(panel.ModeOff)},
	)
	assert.Equal(t, "throttle=0.5, autopilot_mode=disabled", formatChanges(s))
}

type sliceSource struct {
	frames []string
	err    error
}

func (s *sliceSource) ReadFrame() (string, error) {
	if len(s.frames) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("eof", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil, Config{})
		a := alive.NewAlive()
		err := env.d.Run(context.Background(), a, &sliceSource{frames: []string{"99-0", "", "99-1"}})
		assert.NoError(t, err)
		assert.Equal(t, []string{
			testURL + "?a=f.setThrottle%5B1.0%5D&b=mj.smartassoff&c=f.sas%5BFalse%5D&d=f.rcs%5BFalse%5D&e=f.light%5BFalse%5D&f=f.gear%5BFalse%5D&g=f.brake%5BFalse%5D",
			testURL + "?a=f.stage",
		}, env.mock.URLs())
	})
	t.Run("error", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil, Config{})
		err := env.d.Run(context.Background(), alive.NewAlive(), &sliceSource{err: fmt.Errorf("device gone")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "device gone")
	})
	t.Run("stopped", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil, Config{})
		a := alive.NewAlive()
		a.Stop()
		assert.NoError(t, env.d.Run(context.Background(), a, &sliceSource{frames: []string{"99-0"}}))
		assert.Empty(t, env.mock.URLs())
	})
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.observeFrame(true)
	m.observeSend(ResultOK, 0)
	m.observeCycle(0)
	m.incSchemaMismatch("x")
	rx, tx := m.SerialCounters()
	assert.Nil(t, rx)
	assert.Nil(t, tx)
	assert.True(t, m.LastFrame().IsZero())
}
