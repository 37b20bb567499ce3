package panel

import (
	"regexp"
	"strings"
)

const (
	// NoValue marks unset throttle/autopilot position in frame.
	NoValue = '-'

	// ModeOff is autopilot mode for any selector outside 0-8, always present.
	ModeOff = "smartassoff"

	// frame throttle 99 is full throttle, not 0.99
	throttleFull = 99

	bitmaskBits = 15
)

// autopilot selector digit -> mode
var autopilotModes = [...]string{
	"prograde",
	"retrograde",
	"normalplus",
	"normalminus",
	"radialplus",
	"radialminus",
	"targetplus",
	"targetminus",
	"node",
}

var reFrame = regexp.MustCompile(`^(\d{2}|--)(\d|-)(\d+|-+)$`)

// MatchFrame reports whether raw line has conforming shape.
// Decode accepts anything, this is only for diagnostics.
func MatchFrame(raw string) bool {
	return reFrame.MatchString(strings.TrimRight(raw, "\r\n"))
}

// Decode parses one status line into fresh State. Best effort, never fails:
// unexpected characters degrade to unset (or ModeOff for autopilot).
//
// Format, left to right:
//	0-1  throttle 00-99 or --
//	2    autopilot mode 0-8 or -
//	3..  decimal bitmask of BitmaskAttrs(), or run of dashes for 0
func Decode(raw string) *State {
	raw = strings.TrimRight(raw, "\r\n")
	s := &State{}
	s.set(AttrThrottle, decodeThrottle(raw))
	s.set(AttrAutopilotMode, decodeAutopilot(raw))

	var mask uint16
	if len(raw) > 3 {
		mask = decodeBitmask(raw[3:])
	}
	for bit, a := range bitmaskAttrs {
		on := mask&(1<<uint(bit)) != 0
		switch {
		case on:
			s.set(a, Bool(true))
		case a.IsMomentary():
			// no signal this cycle, not "off"
			s.set(a, Absent)
		default:
			s.set(a, Bool(false))
		}
	}
	return s
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func decodeThrottle(raw string) Value {
	if len(raw) < 2 || !isDigit(raw[0]) || !isDigit(raw[1]) {
		return Absent
	}
	n := int(raw[0]-'0')*10 + int(raw[1]-'0')
	if n == throttleFull {
		return Float(1.0)
	}
	return Float(float64(n) / 100.0)
}

func decodeAutopilot(raw string) Value {
	if len(raw) < 3 {
		return Enum(ModeOff)
	}
	c := raw[2]
	if !isDigit(c) || int(c-'0') >= len(autopilotModes) {
		return Enum(ModeOff)
	}
	return Enum(autopilotModes[c-'0'])
}

// decodeBitmask reads leading decimal digits, anything else reads as 0.
// Only low bitmaskBits matter, so accumulate modulo 2^bitmaskBits
// and never overflow on noisy long lines.
func decodeBitmask(s string) uint16 {
	const mod = 1 << bitmaskBits
	var acc uint32
	for i := 0; i < len(s) && isDigit(s[i]); i++ {
		acc = (acc*10 + uint32(s[i]-'0')) % mod
	}
	return uint16(acc)
}
