// Package serial is the panel side: USB serial line carrying one status
// frame per line, and keep-alive token written back to the panel.
package serial

import (
	"os"
	"syscall"

	"github.com/juju/errors"
)

const DefaultBaud = 9600

// Port is open panel serial device. Read blocks until data arrives.
type Port struct {
	f    *os.File
	path string
}

// Open configures device raw 8N1 at baud. baud=0 means DefaultBaud.
func Open(path string, baud int) (*Port, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	f, err := os.OpenFile(path, syscall.O_RDWR|syscall.O_NOCTTY, 0600)
	if err != nil {
		return nil, errors.Annotatef(err, "serial open path=%s", path)
	}
	if err = configure(f.Fd(), baud); err != nil {
		f.Close()
		return nil, errors.Annotatef(err, "serial configure path=%s baud=%d", path, baud)
	}
	return &Port{f: f, path: path}, nil
}

func (self *Port) Path() string               { return self.path }
func (self *Port) Read(p []byte) (int, error)  { return self.f.Read(p) }
func (self *Port) Write(p []byte) (int, error) { return self.f.Write(p) }
func (self *Port) Close() error               { return self.f.Close() }
