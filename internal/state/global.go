package state

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/juju/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/telepanel/telepanel/internal/dispatch"
	"github.com/telepanel/telepanel/internal/telemachus"
	"github.com/telepanel/telepanel/log2"
	"github.com/temoto/alive/v2"
)

// Global is runtime container passed around in context.
type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Config       *Config
	Dispatcher   *dispatch.Dispatcher
	Log          *log2.Log
	Metrics      *dispatch.Metrics
	Registry     *prom.Registry
	Telemachus   *telemachus.Client

	// HTTPClient nil means http.DefaultClient, tests set mock transport.
	HTTPClient *http.Client
}

const ContextKey = "run/state-global"

func NewContext(log *log2.Log) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &Global{
		Alive:    alive.NewAlive(),
		Log:      log,
		Registry: prom.NewRegistry(),
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, ContextKey, g)

	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	g.Config.ApplyDefaults()
	if g.Config.LogDebug {
		g.Log.SetLevel(log2.LDebug)
	}
	g.Log.Debugf("build version=%s", g.BuildVersion)
	if err := g.Config.Validate(); err != nil {
		return errors.Annotate(err, "config")
	}

	g.Metrics = dispatch.NewMetrics(g.Registry)
	g.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var err error
	g.Telemachus, err = telemachus.NewClient(g.Log.Named("telemachus"), g.Config.Telemachus.URL, g.HTTPClient)
	if err != nil {
		return errors.Annotate(err, "telemachus init")
	}
	if g.Config.Telemachus.DryRun {
		g.Log.Warnf("test mode enabled. No commands will be sent to telemachus.")
	}
	g.Dispatcher = dispatch.New(g.Log.Named("dispatch"), g.Telemachus, dispatch.Config{
		DryRun:  g.Config.Telemachus.DryRun,
		Metrics: g.Metrics,
	})
	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Fatal(err)
	}
}

// ServeMetrics starts metrics HTTP endpoint if configured.
// Listener failure is logged, dispatch goes on without metrics.
func (g *Global) ServeMetrics() {
	addr := g.Config.Metrics.Listen
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-g.Alive.StopChan()
		_ = srv.Close()
	}()
	go func() {
		g.Log.Infof("metrics listen=%s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			g.Error(err, "metrics listen=%s", addr)
		}
	}()
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(err)
	}
}

func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		g.Error(err, args...)
		g.StopWait(5 * time.Second)
		g.Log.Fatal(errors.ErrorStack(err))
		os.Exit(1)
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}
