package detect

import (
	"context"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/telepanel/telepanel/cmd/telepanel/subcmd"
	"github.com/telepanel/telepanel/internal/serial"
	"github.com/telepanel/telepanel/internal/state"
)

var Mod = subcmd.Mod{Name: "detect", Usage: "list serial devices matching detect patterns", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	config.ApplyDefaults()
	list, err := serial.List(config.Detect.Patterns)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return errors.NotFoundf("USB serial device patterns=%v", config.Detect.Patterns)
	}
	g.Log.Debugf("detect patterns=%v found=%d", config.Detect.Patterns, len(list))
	for _, dev := range list {
		fmt.Fprintln(os.Stdout, dev)
	}
	return nil
}
