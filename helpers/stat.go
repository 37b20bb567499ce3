package helpers

import (
	"io"
)

// Counter is satisfied by prometheus.Counter.
type Counter interface {
	Add(float64)
}

// StatReader counts bytes read from serial line.
type StatReader struct {
	R io.Reader
	C Counter
}

var _ io.Reader = &StatReader{}

func NewStatReader(r io.Reader, c Counter) io.Reader {
	if c == nil {
		return r
	}
	return &StatReader{R: r, C: c}
}

func (sr *StatReader) Read(p []byte) (n int, err error) {
	n, err = sr.R.Read(p)
	if n > 0 {
		sr.C.Add(float64(n))
	}
	return
}

type StatWriter struct {
	W io.Writer
	C Counter
}

var _ io.Writer = &StatWriter{}

func NewStatWriter(w io.Writer, c Counter) io.Writer {
	if c == nil {
		return w
	}
	return &StatWriter{W: w, C: c}
}

func (sw *StatWriter) Write(p []byte) (n int, err error) {
	n, err = sw.W.Write(p)
	if n > 0 {
		sw.C.Add(float64(n))
	}
	return
}
