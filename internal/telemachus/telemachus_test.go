package telemachus_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telepanel/telepanel/helpers"
	"github.com/telepanel/telepanel/internal/panel"
	"github.com/telepanel/telepanel/internal/telemachus"
	"github.com/telepanel/telepanel/log2"
)

func mustState(t testing.TB, entries ...panel.Entry) *panel.State {
	s, err := panel.NewStateEntries(entries...)
	require.NoError(t, err)
	return s
}

func TestKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n      int
		expect string
	}{
		{0, "a"}, {1, "b"}, {25, "z"}, {26, "aa"}, {27, "ab"},
		{51, "az"}, {52, "ba"}, {701, "zz"}, {702, "aaa"},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, telemachus.Key(c.n), "n=%d", c.n)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		state  []panel.Entry
		expect string
	}{
		{"empty", nil, ""},
		{"absent-only", []panel.Entry{{Attr: panel.AttrThrottle, Value: panel.Absent}}, ""},
		{"insertion-order", []panel.Entry{
			{Attr: panel.AttrRCS, Value: panel.Bool(true)},
			{Attr: panel.AttrSAS, Value: panel.Bool(true)},
			{Attr: panel.AttrLights, Value: panel.Bool(false)},
		}, "a=f.rcs[True] b=f.sas[True] c=f.light[False]"},
		{"throttle-int", []panel.Entry{{Attr: panel.AttrThrottle, Value: panel.Int(84)}}, "a=f.setThrottle[84]"},
		{"throttle-full", []panel.Entry{{Attr: panel.AttrThrottle, Value: panel.Float(1.0)}}, "a=f.setThrottle[1.0]"},
		{"autopilot", []panel.Entry{{Attr: panel.AttrAutopilotMode, Value: panel.Enum("radialminus")}}, "a=mj.radialminus"},
		{"autopilot-off", []panel.Entry{{Attr: panel.AttrAutopilotMode, Value: panel.Enum(panel.ModeOff)}}, "a=mj.smartassoff"},
		{"momentary-literal", []panel.Entry{
			{Attr: panel.AttrStage, Value: panel.Bool(true)},
			{Attr: panel.AttrActionGroup7, Value: panel.Bool(true)},
			{Attr: panel.AttrBrakes, Value: panel.Bool(true)},
			{Attr: panel.AttrGear, Value: panel.Bool(false)},
		}, "a=f.stage b=f.ag7 c=f.brake[True] d=f.gear[False]"},
	}
	enc := telemachus.NewEncoder(nil)
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			cmds, skipped := enc.Encode(mustState(t, c.state...))
			assert.Empty(t, skipped)
			assert.Equal(t, c.expect, joinCommands(cmds))
		})
	}
}

func TestEncodeSchemaMismatch(t *testing.T) {
	t.Parallel()

	templates := make(map[panel.Attr]string)
	for a, tpl := range telemachus.DefaultTemplates {
		templates[a] = tpl
	}
	delete(templates, panel.AttrSAS)
	enc := telemachus.NewEncoder(templates)

	cmds, skipped := enc.Encode(mustState(t,
		panel.Entry{Attr: panel.AttrRCS, Value: panel.Bool(true)},
		panel.Entry{Attr: panel.AttrSAS, Value: panel.Bool(true)},
		panel.Entry{Attr: panel.AttrLights, Value: panel.Bool(false)},
	))
	assert.Equal(t, []panel.Attr{panel.AttrSAS}, skipped)
	// skipped entry does not consume a key
	assert.Equal(t, "a=f.rcs[True] b=f.light[False]", joinCommands(cmds))
}

func TestDefaultTemplatesCoverSchema(t *testing.T) {
	t.Parallel()

	for _, a := range panel.Attrs() {
		_, ok := telemachus.DefaultTemplates[a]
		assert.True(t, ok, "attr=%s", a)
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()

	cmds := []telemachus.Command{
		{Key: "a", Value: "f.rcs[True]"},
		{Key: "b", Value: "f.sas[True]"},
		{Key: "c", Value: "f.light[False]"},
	}
	assert.Equal(t, "a=f.rcs%5BTrue%5D&b=f.sas%5BTrue%5D&c=f.light%5BFalse%5D", telemachus.Query(cmds))
	assert.Equal(t, "", telemachus.Query(nil))
}

func TestClientSend(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		mock      *helpers.MockHTTP
		expectErr string
	}{
		{"ok", &helpers.MockHTTP{Body: []byte("{}")}, ""},
		{"transport", &helpers.MockHTTP{Err: fmt.Errorf("connection refused")}, "connection refused"},
		{"status", &helpers.MockHTTP{Header: []byte("HTTP/1.0 500 Internal Server Error\r\n\r\n")}, "status=500"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			client, err := telemachus.NewClient(log2.NewTest(t, log2.LDebug), "", c.mock.Client())
			require.NoError(t, err)
			cmds, _ := telemachus.NewEncoder(nil).Encode(mustState(t,
				panel.Entry{Attr: panel.AttrRCS, Value: panel.Bool(true)},
				panel.Entry{Attr: panel.AttrSAS, Value: panel.Bool(true)},
				panel.Entry{Attr: panel.AttrLights, Value: panel.Bool(false)},
			))
			r := client.Send(context.Background(), cmds)

			const expectURL = "http://127.0.0.1:8085/telemachus/datalink?a=f.rcs%5BTrue%5D&b=f.sas%5BTrue%5D&c=f.light%5BFalse%5D"
			assert.Equal(t, expectURL, r.URL)
			assert.Equal(t, []string{expectURL}, c.mock.URLs())
			if c.expectErr == "" {
				assert.True(t, r.OK())
				assert.Equal(t, http.StatusOK, r.Status)
			} else {
				assert.False(t, r.OK())
				require.Error(t, r.Err)
				assert.Contains(t, r.Err.Error(), c.expectErr)
				assert.Contains(t, r.String(), "err=")
			}
		})
	}
}

func TestClientThrottle(t *testing.T) {
	t.Parallel()

	mock := &helpers.MockHTTP{}
	client, err := telemachus.NewClient(nil, "http://10.0.0.5:8085/telemachus/datalink", mock.Client())
	require.NoError(t, err)
	cmds, _ := telemachus.NewEncoder(nil).Encode(mustState(t, panel.Entry{Attr: panel.AttrThrottle, Value: panel.Int(84)}))
	r := client.Send(context.Background(), cmds)
	assert.True(t, r.OK())
	assert.Equal(t, []string{"http://10.0.0.5:8085/telemachus/datalink?a=f.setThrottle%5B84%5D"}, mock.URLs())
}

func TestNewClientInvalid(t *testing.T) {
	t.Parallel()

	_, err := telemachus.NewClient(nil, "ftp://127.0.0.1/", nil)
	assert.Error(t, err)
	_, err = telemachus.NewClient(nil, "http://[::1", nil)
	assert.Error(t, err)
}

func joinCommands(cmds []telemachus.Command) string {
	s := ""
	for i, c := range cmds {
		if i > 0 {
			s += " "
		}
		s += c.String()
	}
	return s
}
