// Package log2 is a levelled wrapper around stdlib log.
// - level filtering, e.g. show debug lines only with -verbose or in tests
// - safe concurrent change of level, frame loop and heartbeat share a writer
// - named children, one per component (main, dispatch, serial, telemachus)
// - nil *Log is a valid logger that discards everything
package log2

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sync/atomic"
	"testing"
)

const ContextKey = "run/log"

const (
	// type specified here helped against accidentally passing flags as level
	Lmicroseconds     int = log.Lmicroseconds
	Lshortfile        int = log.Lshortfile
	LStdFlags         int = log.Ltime | Lshortfile
	LInteractiveFlags int = log.Ltime | Lshortfile | Lmicroseconds
	LServiceFlags     int = Lshortfile
	LTestFlags        int = Lshortfile | Lmicroseconds
)

func ContextValueLogger(ctx context.Context) *Log {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Errorf("context['%v'] is nil", ContextKey))
	}
	if log, ok := v.(*Log); ok {
		return log
	}
	panic(fmt.Errorf("context['%v'] expected type *Log", ContextKey))
}

type Level int32

const (
	LError Level = iota
	LInfo
	LDebug
	LAll Level = math.MaxInt32
)

// ParseVerbose maps -verbose flag into level.
func ParseVerbose(verbose bool) Level {
	if verbose {
		return LDebug
	}
	return LInfo
}

type Log struct {
	l      *log.Logger
	level  *int32
	w      io.Writer
	name   string
	fatalf FmtFunc
	errfun atomic.Value // ErrorFunc
}

type FmtFunc func(format string, args ...interface{})
type ErrorFunc func(error)

func NewStderr(level Level) *Log { return NewWriter(os.Stderr, level) }
func NewWriter(w io.Writer, level Level) *Log {
	if w == io.Discard {
		return nil
	}
	lv := int32(level)
	return &Log{
		l:     log.New(w, "", LStdFlags),
		level: &lv,
		w:     w,
	}
}

type FuncWriter struct{ FmtFunc }

func NewFunc(f FmtFunc, level Level) *Log { return NewWriter(FuncWriter{f}, level) }
func (self FuncWriter) Write(b []byte) (int, error) {
	self.FmtFunc("%s", string(b))
	return len(b), nil
}

func NewTest(t testing.TB, level Level) *Log {
	self := NewFunc(t.Logf, level)
	self.fatalf = t.Fatalf
	return self
}

// Named returns child logger writing to same destination with "name: " prefix.
// Level is shared with parent, so -verbose toggles all components at once.
func (self *Log) Named(name string) *Log {
	if self == nil {
		return nil
	}
	child := &Log{
		l:      log.New(self.w, self.l.Prefix(), self.l.Flags()),
		level:  self.level,
		w:      self.w,
		name:   name,
		fatalf: self.fatalf,
	}
	if f, ok := self.errfun.Load().(ErrorFunc); ok {
		child.errfun.Store(f)
	}
	return child
}

func (self *Log) Name() string {
	if self == nil {
		return ""
	}
	return self.name
}

func (self *Log) SetLevel(l Level) {
	if self == nil {
		return
	}
	atomic.StoreInt32(self.level, int32(l))
}

func (self *Log) SetFlags(f int) {
	if self == nil {
		return
	}
	self.l.SetFlags(f)
}

// SetErrorFunc hook receives every error logged via Error/Errorf.
func (self *Log) SetErrorFunc(f ErrorFunc) {
	if self == nil {
		return
	}
	self.errfun.Store(f)
}

func (self *Log) Enabled(level Level) bool {
	if self == nil {
		return false
	}
	return atomic.LoadInt32(self.level) >= int32(level)
}

func (self *Log) output(s string) {
	if self.name != "" {
		s = self.name + ": " + s
	}
	_ = self.l.Output(4, s)
}

func (self *Log) Log(level Level, s string) {
	if self.Enabled(level) {
		self.output(s)
	}
}
func (self *Log) Logf(level Level, format string, args ...interface{}) {
	if self.Enabled(level) {
		self.output(fmt.Sprintf(format, args...))
	}
}

func (self *Log) callErrorFunc(e error) {
	if self == nil {
		return
	}
	if f, ok := self.errfun.Load().(ErrorFunc); ok && f != nil {
		f(e)
	}
}

func (self *Log) Error(args ...interface{}) {
	if self == nil {
		return
	}
	if len(args) == 1 {
		if e, ok := args[0].(error); ok {
			self.callErrorFunc(e)
			self.Log(LError, "error: "+e.Error())
			return
		}
	}
	s := fmt.Sprint(args...)
	self.callErrorFunc(fmt.Errorf("%s", s))
	self.Log(LError, "error: "+s)
}
func (self *Log) Errorf(format string, args ...interface{}) {
	if self == nil {
		return
	}
	self.callErrorFunc(fmt.Errorf(format, args...))
	self.Logf(LError, "error: "+format, args...)
}

// Warnf is logged at error level but does not trigger ErrorFunc.
func (self *Log) Warnf(format string, args ...interface{}) {
	self.Logf(LError, "warning: "+format, args...)
}
func (self *Log) Info(args ...interface{}) {
	self.Log(LInfo, fmt.Sprint(args...))
}
func (self *Log) Infof(format string, args ...interface{}) {
	self.Logf(LInfo, format, args...)
}
func (self *Log) Debug(args ...interface{}) {
	self.Log(LDebug, "debug: "+fmt.Sprint(args...))
}
func (self *Log) Debugf(format string, args ...interface{}) {
	self.Logf(LDebug, "debug: "+format, args...)
}

func (self *Log) Fatalf(format string, args ...interface{}) {
	if self != nil && self.fatalf != nil {
		self.fatalf(format, args...)
		return
	}
	if self != nil {
		self.Logf(LError, "fatal: "+format, args...)
	}
	os.Exit(1)
}
func (self *Log) Fatal(args ...interface{}) {
	s := fmt.Sprint(args...)
	if self != nil && self.fatalf != nil {
		self.fatalf("%s", s)
		return
	}
	if self != nil {
		self.Log(LError, "fatal: "+s)
	}
	os.Exit(1)
}
