// Package telemachus turns panel state changes into telemachus datalink
// commands and sends them as one GET request.
package telemachus

import (
	"net/url"
	"strings"

	"github.com/telepanel/telepanel/internal/panel"
)

// Value is substituted for %s. Momentary templates have no %s.
var DefaultTemplates = map[panel.Attr]string{
	panel.AttrThrottle:      "f.setThrottle[%s]",
	panel.AttrAutopilotMode: "mj.%s",
	panel.AttrStage:         "f.stage",
	panel.AttrSAS:           "f.sas[%s]",
	panel.AttrRCS:           "f.rcs[%s]",
	panel.AttrLights:        "f.light[%s]",
	panel.AttrGear:          "f.gear[%s]",
	panel.AttrBrakes:        "f.brake[%s]",
	panel.AttrActionGroup1:  "f.ag1",
	panel.AttrActionGroup2:  "f.ag2",
	panel.AttrActionGroup3:  "f.ag3",
	panel.AttrActionGroup4:  "f.ag4",
	panel.AttrActionGroup5:  "f.ag5",
	panel.AttrActionGroup6:  "f.ag6",
	panel.AttrActionGroup7:  "f.ag7",
	panel.AttrActionGroup8:  "f.ag8",
	panel.AttrActionGroup9:  "f.ag9",
}

// Command is one query parameter of datalink request.
type Command struct {
	Key   string
	Value string
}

func (c Command) String() string { return c.Key + "=" + c.Value }

type Encoder struct {
	templates map[panel.Attr]string
}

func NewEncoder(templates map[panel.Attr]string) *Encoder {
	if templates == nil {
		templates = DefaultTemplates
	}
	return &Encoder{templates: templates}
}

// Encode maps present attributes, in state insertion order, to commands
// keyed a, b, ... z, aa, ab. Attributes without template are returned in
// skipped and do not consume a key. Empty result means nothing to send.
func (self *Encoder) Encode(s *panel.State) (cmds []Command, skipped []panel.Attr) {
	present := s.ReadPresent()
	cmds = make([]Command, 0, len(present))
	for _, e := range present {
		template, ok := self.templates[e.Attr]
		if !ok {
			skipped = append(skipped, e.Attr)
			continue
		}
		cmds = append(cmds, Command{
			Key:   Key(len(cmds)),
			Value: strings.Replace(template, "%s", e.Value.String(), -1),
		})
	}
	return cmds, skipped
}

// Key returns n-th sequential key: 0=a, 25=z, 26=aa, 27=ab, 702=aaa.
func Key(n int) string {
	var buf [16]byte
	i := len(buf)
	for n++; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('a' + (n-1)%26)
	}
	return string(buf[i:])
}

// Query serializes commands as key=escaped(value) joined with &,
// keeping order exactly. url.Values would sort keys, aa < b.
func Query(cmds []Command) string {
	var b strings.Builder
	for i, c := range cmds {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(c.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(c.Value))
	}
	return b.String()
}
