package panel

import (
	"fmt"
)

// Attr is one named field of panel state.
type Attr uint8

const (
	AttrThrottle Attr = iota
	AttrAutopilotMode
	AttrStage
	AttrSAS
	AttrRCS
	AttrLights
	AttrGear
	AttrBrakes
	AttrActionGroup1
	AttrActionGroup2
	AttrActionGroup3
	AttrActionGroup4
	AttrActionGroup5
	AttrActionGroup6
	AttrActionGroup7
	AttrActionGroup8
	AttrActionGroup9

	attrCount
)

// AttrKind separates standing conditions from one-shot triggers.
type AttrKind uint8

const (
	Persistent AttrKind = iota
	Momentary
)

func (k AttrKind) String() string {
	switch k {
	case Persistent:
		return "persistent"
	case Momentary:
		return "momentary"
	}
	return fmt.Sprintf("AttrKind(%d)", uint8(k))
}

type attrInfo struct {
	name string
	kind AttrKind
}

var schema = [attrCount]attrInfo{
	AttrThrottle:      {"throttle", Persistent},
	AttrAutopilotMode: {"autopilot_mode", Persistent},
	AttrStage:         {"stage", Momentary},
	AttrSAS:           {"sas", Persistent},
	AttrRCS:           {"rcs", Persistent},
	AttrLights:        {"lights", Persistent},
	AttrGear:          {"gear", Persistent},
	AttrBrakes:        {"brakes", Persistent},
	AttrActionGroup1:  {"action_group_1", Momentary},
	AttrActionGroup2:  {"action_group_2", Momentary},
	AttrActionGroup3:  {"action_group_3", Momentary},
	AttrActionGroup4:  {"action_group_4", Momentary},
	AttrActionGroup5:  {"action_group_5", Momentary},
	AttrActionGroup6:  {"action_group_6", Momentary},
	AttrActionGroup7:  {"action_group_7", Momentary},
	AttrActionGroup8:  {"action_group_8", Momentary},
	AttrActionGroup9:  {"action_group_9", Momentary},
}

// Bit i of frame bitmask, least significant first.
var bitmaskAttrs = [...]Attr{
	AttrStage,
	AttrSAS,
	AttrRCS,
	AttrLights,
	AttrGear,
	AttrBrakes,
	AttrActionGroup1,
	AttrActionGroup2,
	AttrActionGroup3,
	AttrActionGroup4,
	AttrActionGroup5,
	AttrActionGroup6,
	AttrActionGroup7,
	AttrActionGroup8,
	AttrActionGroup9,
}

var nameIndex = func() map[string]Attr {
	m := make(map[string]Attr, attrCount)
	for i, info := range schema {
		m[info.name] = Attr(i)
	}
	return m
}()

// Attrs returns all attributes in canonical order:
// throttle, autopilot_mode, then bitmask attributes.
func Attrs() []Attr {
	out := make([]Attr, attrCount)
	for i := range out {
		out[i] = Attr(i)
	}
	return out
}

// BitmaskAttrs returns frame bitmask attributes, index = bit number.
func BitmaskAttrs() []Attr {
	out := make([]Attr, len(bitmaskAttrs))
	copy(out, bitmaskAttrs[:])
	return out
}

func MomentaryAttrs() []Attr {
	out := make([]Attr, 0, 10)
	for i, info := range schema {
		if info.kind == Momentary {
			out = append(out, Attr(i))
		}
	}
	return out
}

func (a Attr) Valid() bool { return a < attrCount }

func (a Attr) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Attr(%d)", uint8(a))
	}
	return schema[a].name
}

// Kind of invalid attribute is reported as Persistent, check Valid() first.
func (a Attr) Kind() AttrKind {
	if !a.Valid() {
		return Persistent
	}
	return schema[a].kind
}

func (a Attr) IsMomentary() bool { return a.Valid() && schema[a].kind == Momentary }

// ParseAttr resolves attribute by schema name.
func ParseAttr(name string) (Attr, error) {
	if a, ok := nameIndex[name]; ok {
		return a, nil
	}
	return 0, UnknownAttributeError{Name: name}
}
