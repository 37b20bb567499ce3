package serial

import (
	"bufio"
	"io"
	"strings"

	"github.com/juju/errors"
)

// Longer lines are noise, panel frames are under 16 bytes.
const maxFrameLength = 256

// FrameReader splits serial stream into newline terminated frames.
type FrameReader struct {
	r *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, maxFrameLength)}
}

// ReadFrame returns next line without trailing CR/LF.
// Overlong line is returned truncated, the rest is discarded.
// Final unterminated line before EOF is returned, then io.EOF.
func (self *FrameReader) ReadFrame() (string, error) {
	b, err := self.r.ReadSlice('\n')
	switch err {
	case nil:
	case bufio.ErrBufferFull:
		line := string(b)
		if err = self.discardLine(); err != nil && err != io.EOF {
			return "", errors.Annotate(err, "serial read")
		}
		return line, nil
	case io.EOF:
		if len(b) == 0 {
			return "", io.EOF
		}
	default:
		return "", errors.Annotate(err, "serial read")
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func (self *FrameReader) discardLine() error {
	for {
		_, err := self.r.ReadSlice('\n')
		if err != bufio.ErrBufferFull {
			return err
		}
	}
}
