// Package run is the default service mode: read panel over serial, drive telemachus.
package run

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/telepanel/telepanel/cmd/telepanel/subcmd"
	"github.com/telepanel/telepanel/helpers"
	"github.com/telepanel/telepanel/internal/serial"
	"github.com/telepanel/telepanel/internal/state"
)

var Mod = subcmd.Mod{Name: "run", Usage: "read panel serial line and dispatch to telemachus", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	g.Log.Debugf("config=%+v", g.Config)

	device := g.Config.Device
	if device == "" {
		var err error
		device, err = serial.Detect(g.Config.Detect.Patterns)
		if err != nil {
			return errors.Annotate(err, "device detect")
		}
		g.Log.Infof("detected device=%s", device)
	}
	port, err := serial.Open(device, g.Config.Baud)
	if err != nil {
		return errors.Annotate(err, "serial open")
	}
	g.Log.Infof("connected to %s baud=%d", port.Path(), g.Config.Baud)

	return Loop(ctx, port)
}

// Loop runs heartbeat and frame dispatch on an opened port until stop or read error.
// Port is closed on return.
func Loop(ctx context.Context, port io.ReadWriteCloser) error {
	g := state.GetGlobal(ctx)
	rx, tx := g.Metrics.SerialCounters()
	r := helpers.NewStatReader(port, rx)
	w := helpers.NewStatWriter(port, tx)

	var closeErr helpers.AtomicError
	var closeOnce sync.Once
	closePort := func() {
		closeOnce.Do(func() { closeErr.StoreOnce(port.Close()) })
	}
	go stopOnSignal(ctx, closePort)
	go func() {
		<-g.Alive.StopChan()
		// unblock ReadFrame
		closePort()
	}()
	g.ServeMetrics()

	if !g.Config.Heartbeat.Disable {
		hb := &serial.Heartbeat{
			W:        w,
			Token:    []byte(g.Config.Heartbeat.Token),
			Interval: g.Config.HeartbeatInterval(),
			Log:      g.Log.Named("heartbeat"),
		}
		go hb.Run(g.Alive)
	}

	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Debugf("init complete, running")
	err := g.Dispatcher.Run(ctx, g.Alive, serial.NewFrameReader(r))
	subcmd.SdNotify(daemon.SdNotifyStopping)
	g.Alive.Stop()
	g.Alive.Wait()
	closePort()
	if err != nil {
		return errors.Annotate(err, "dispatch")
	}
	if cerr, ok := closeErr.Load(); ok && cerr != nil {
		g.Log.Debugf("port close err=%v", cerr)
	}
	return nil
}

func stopOnSignal(ctx context.Context, closePort func()) {
	g := state.GetGlobal(ctx)
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigch)
	select {
	case sig := <-sigch:
		g.Log.Infof("signal=%v stopping", sig)
		g.Alive.Stop()
		closePort()
	case <-g.Alive.StopChan():
	}
}
