package cli

import (
	"bufio"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/temoto/alive/v2"
)

// MainLoop feeds lines to exec until a is stopped or input ends.
// Terminal stdin gets interactive prompt, otherwise stdin is read line by line,
// so recorded panel output can be piped in.
func MainLoop(a *alive.Alive, tag string, exec func(line string), complete func(d prompt.Document) []prompt.Suggest) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer signal.Stop(signalCh)
	go func() {
		select {
		case <-signalCh:
			a.Stop()
			// go-prompt Run() has no cancel
			os.Exit(1)
		case <-a.StopChan():
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		// TODO OptionHistory from file
		prompt.New(exec, complete,
			prompt.OptionPrefix(tag+"> "),
			prompt.OptionTitle(tag),
		).Run()
		return nil
	}
	return ReadLines(a, os.Stdin, exec)
}

// ReadLines calls exec for each trimmed line of r.
func ReadLines(a *alive.Alive, r io.Reader, exec func(line string)) error {
	scanner := bufio.NewScanner(r)
	for a.IsRunning() && scanner.Scan() {
		exec(strings.TrimSpace(scanner.Text()))
	}
	return errors.Annotate(scanner.Err(), "read input")
}
