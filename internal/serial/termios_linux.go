package serial

import (
	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// configure sets raw mode 8N1, no flow control, blocking read of at least 1 byte.
func configure(fd uintptr, baud int) error {
	speed, ok := baudRates[baud]
	if !ok {
		return errors.NotSupportedf("baud=%d", baud)
	}
	t, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	if err != nil {
		return errors.Annotate(err, "TCGETS")
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	t.Ispeed = speed
	t.Ospeed = speed
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	if err = unix.IoctlSetTermios(int(fd), unix.TCSETSF, t); err != nil {
		return errors.Annotate(err, "TCSETSF")
	}
	return nil
}
