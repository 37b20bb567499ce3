package serial

import (
	"io"
	"time"

	"github.com/telepanel/telepanel/helpers"
	"github.com/telepanel/telepanel/log2"
	"github.com/temoto/alive/v2"
)

const (
	DefaultHeartbeatInterval = 100 * time.Millisecond
	DefaultHeartbeatToken    = "1"
)

// Heartbeat tells panel firmware "we're alive" at fixed interval.
// Shares nothing with the frame loop except the port.
type Heartbeat struct {
	W        io.Writer
	Token    []byte
	Interval time.Duration
	Log      *log2.Log
}

// Run writes token until a is stopped. Write errors are logged once
// per streak and do not stop the loop, USB may come back.
func (self *Heartbeat) Run(a *alive.Alive) {
	if !a.Add(1) {
		return
	}
	defer a.Done()

	token := self.Token
	if len(token) == 0 {
		token = []byte(DefaultHeartbeatToken)
	}
	interval := self.Interval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	stopch := a.StopChan()
	failing := false
	for {
		if err := helpers.WriteAll(self.W, token); err != nil {
			if !failing {
				self.Log.Errorf("heartbeat write err=%v", err)
			}
			failing = true
		} else if failing {
			self.Log.Infof("heartbeat write recovered")
			failing = false
		}
		select {
		case <-tick.C:
		case <-stopch:
			return
		}
	}
}
