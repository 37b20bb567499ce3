package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/telepanel/telepanel/cmd/telepanel/console"
	"github.com/telepanel/telepanel/cmd/telepanel/detect"
	"github.com/telepanel/telepanel/cmd/telepanel/run"
	"github.com/telepanel/telepanel/cmd/telepanel/subcmd"
	"github.com/telepanel/telepanel/internal/state"
	"github.com/telepanel/telepanel/log2"
)

var log = log2.NewStderr(log2.LInfo)

// set by -ldflags "-X main.BuildVersion=..."
var BuildVersion string = "unknown"

var modules = []subcmd.Mod{
	run.Mod,
	console.Mod,
	detect.Mod,
}

func main() {
	flagset := flag.NewFlagSet("telepanel", flag.ExitOnError)
	flagConfig := flagset.String("config", state.DefaultConfigName, "HCL config file")
	flagDevice := flagset.String("device", "", "serial device, empty = auto-detect")
	flagURL := flagset.String("url", "", "telemachus datalink URL")
	flagVerbose := flagset.Bool("verbose", false, "debug logging")
	flagTestMode := flagset.Bool("test-mode", false, "log commands, do not send to telemachus")
	flagMetrics := flagset.String("metrics", "", "prometheus metrics listen address")
	flagset.Usage = func() {
		fmt.Fprintf(flagset.Output(), "Usage: telepanel [flags] [command]\n\nCommands:\n")
		for _, m := range modules {
			fmt.Fprintf(flagset.Output(), "  %-8s %s\n", m.Name, m.Usage)
		}
		fmt.Fprintf(flagset.Output(), "\nFlags:\n")
		flagset.PrintDefaults()
	}
	_ = flagset.Parse(os.Args[1:])

	command := flagset.Arg(0)
	if command == "" {
		command = run.Mod.Name
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		flagset.Usage()
		log.Fatal(err)
	}

	log.SetLevel(log2.ParseVerbose(*flagVerbose))
	if subcmd.SdNotify("start") {
		// under systemd assume journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFlags(log2.LInteractiveFlags)
	} else {
		log.SetFlags(log2.LStdFlags)
	}
	log.Debugf("telepanel version=%s command=%s", BuildVersion, mod.Name)

	set := make(map[string]bool)
	flagset.Visit(func(f *flag.Flag) { set[f.Name] = true })

	ctx, g := state.NewContext(log)
	g.BuildVersion = BuildVersion
	// default config file is optional, explicit -config must exist
	config := state.MustReadConfig(log, state.NewOsFullReader(), state.ConfigSource{Name: *flagConfig, Optional: !set["config"]})
	if set["device"] {
		config.Device = *flagDevice
	}
	if set["url"] {
		config.Telemachus.URL = *flagURL
	}
	if set["verbose"] {
		config.LogDebug = *flagVerbose
	}
	if set["test-mode"] {
		config.Telemachus.DryRun = *flagTestMode
	}
	if set["metrics"] {
		config.Metrics.Listen = *flagMetrics
	}

	if err := mod.Main(ctx, config); err != nil {
		g.Fatal(errors.Annotatef(err, "command=%s", mod.Name))
	}
	g.Log.Debugf("command=%s done", mod.Name)
}
