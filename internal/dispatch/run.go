package dispatch

import (
	"context"
	"io"
	"strings"

	"github.com/juju/errors"
	"github.com/telepanel/telepanel/helpers"
	"github.com/temoto/alive/v2"
)

// FrameSource yields raw status lines, blocking until next one.
// Implemented by serial.FrameReader.
type FrameSource interface {
	ReadFrame() (string, error)
}

// Run consumes frames until source returns error or a is stopped.
// Dispatch cycles are serialized on this goroutine.
// io.EOF is a clean end of input and returns nil.
func (self *Dispatcher) Run(ctx context.Context, a *alive.Alive, src FrameSource) error {
	if !a.Add(1) {
		return nil
	}
	defer a.Done()

	for a.IsRunning() {
		raw, err := src.ReadFrame()
		if err != nil {
			if errors.Cause(err) == io.EOF {
				self.log.Debugf("frame source EOF")
				return nil
			}
			if !a.IsRunning() {
				// source closed on stop
				return nil
			}
			return errors.Annotate(err, "frame source")
		}
		if strings.TrimSpace(raw) == "" {
			self.log.Debugf("blank frame skipped")
			continue
		}
		_, d := self.ProcessFrame(ctx, raw)
		self.log.Debugf("dispatch took %d ms", helpers.Milliseconds(d))
	}
	return nil
}
