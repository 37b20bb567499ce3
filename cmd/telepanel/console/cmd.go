// Package console reads panel frames typed or piped on stdin, without serial device.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/telepanel/telepanel/cmd/telepanel/subcmd"
	"github.com/telepanel/telepanel/helpers"
	"github.com/telepanel/telepanel/helpers/cli"
	"github.com/telepanel/telepanel/internal/dispatch"
	"github.com/telepanel/telepanel/internal/state"
	"github.com/telepanel/telepanel/internal/telemachus"
)

const modName = "console"

const usage = `syntax: one status frame per line, e.g. 50-0 or 995132
  TT   throttle percent, 2 digits, 99 = full
  A    autopilot mode digit or - for none
  N..  decimal bitmask of switches and buttons
(meta)
- :state  print last known panel state
- :help   this text
`

var Mod = subcmd.Mod{Name: modName, Usage: "dispatch frames from stdin, for testing without panel", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	g.ServeMetrics()
	g.Log.Debugf("console init complete, running")

	err := cli.MainLoop(g.Alive, modName, newExecutor(ctx, os.Stdout), newCompleter(ctx))
	g.Alive.Stop()
	return err
}

func newCompleter(ctx context.Context) func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: ":state", Description: "print last known panel state"},
		{Text: ":help", Description: "frame syntax"},
	}
	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
	}
}

func newExecutor(ctx context.Context, w io.Writer) func(string) {
	g := state.GetGlobal(ctx)
	return func(line string) {
		line = strings.TrimSpace(line)
		switch line {
		case "":
			return
		case ":help":
			fmt.Fprint(w, usage)
			return
		case ":state":
			fmt.Fprintln(w, g.Dispatcher.Current().String())
			return
		}
		report, d := g.Dispatcher.ProcessFrame(ctx, line)
		fmt.Fprintln(w, formatReport(report, d))
	}
}

func formatReport(r dispatch.Report, d time.Duration) string {
	if r.Changes == nil || r.Changes.Empty() {
		return "no changes"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "changes: %s", r.Changes.String())
	if len(r.Skipped) != 0 {
		fmt.Fprintf(&b, "\nunrecognized: %v", r.Skipped)
	}
	if len(r.Commands) != 0 {
		fmt.Fprintf(&b, "\nquery: %s", telemachus.Query(r.Commands))
	}
	switch {
	case r.Sent && r.Result.OK():
		fmt.Fprintf(&b, "\nsent status=%d", r.Result.Status)
	case r.Sent:
		fmt.Fprintf(&b, "\nsend error: %v", r.Result.Err)
	case len(r.Commands) != 0:
		fmt.Fprintf(&b, "\nnot sent (dry run)")
	}
	fmt.Fprintf(&b, "\n(%dms)", helpers.Milliseconds(d))
	return b.String()
}
