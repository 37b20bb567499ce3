package panel

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownAttribute = errors.New("unknown attribute")

// UnknownAttributeError means State/Encoder schema mismatch, never ignore it.
type UnknownAttributeError struct {
	Name string
}

func (e UnknownAttributeError) Error() string { return "unknown attribute :" + e.Name }
func (e UnknownAttributeError) Is(target error) bool {
	return target == ErrUnknownAttribute
}

// Entry is one present attribute of State.
type Entry struct {
	Attr  Attr
	Value Value
}

func (e Entry) String() string { return e.Attr.String() + "=" + e.Value.String() }

// State is ordered attribute map. Order is first write of each attribute,
// rewriting an attribute keeps its position.
// Zero State is empty and ready to use. Not safe for concurrent use.
type State struct {
	order  []Attr
	seen   [attrCount]bool
	values [attrCount]Value
}

func NewState() *State { return &State{} }

// NewStateEntries builds State writing entries in given order.
func NewStateEntries(entries ...Entry) (*State, error) {
	s := &State{}
	for _, e := range entries {
		if err := s.Write(e.Attr, e.Value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func checkAttr(a Attr) error {
	if !a.Valid() {
		return UnknownAttributeError{Name: a.String()}
	}
	return nil
}

func (self *State) Read(a Attr) (Value, error) {
	if err := checkAttr(a); err != nil {
		return Absent, err
	}
	return self.values[a], nil
}

func (self *State) Write(a Attr, v Value) error {
	if err := checkAttr(a); err != nil {
		return err
	}
	self.set(a, v)
	return nil
}

func (self *State) ReadName(name string) (Value, error) {
	a, err := ParseAttr(name)
	if err != nil {
		return Absent, err
	}
	return self.values[a], nil
}

func (self *State) WriteName(name string, v Value) error {
	a, err := ParseAttr(name)
	if err != nil {
		return err
	}
	self.set(a, v)
	return nil
}

// get/set skip validation, only for attributes from schema tables
func (self *State) get(a Attr) Value { return self.values[a] }
func (self *State) set(a Attr, v Value) {
	if !self.seen[a] {
		self.seen[a] = true
		self.order = append(self.order, a)
	}
	self.values[a] = v
}

// ReadPresent returns non-absent entries in insertion order.
func (self *State) ReadPresent() []Entry {
	out := make([]Entry, 0, len(self.order))
	for _, a := range self.order {
		if v := self.values[a]; !v.IsAbsent() {
			out = append(out, Entry{Attr: a, Value: v})
		}
	}
	return out
}

func (self *State) Empty() bool {
	for _, a := range self.order {
		if !self.values[a].IsAbsent() {
			return false
		}
	}
	return true
}

// Diff returns new State holding self values for attributes that differ
// from other, absent elsewhere. Entries are inserted in canonical order.
func (self *State) Diff(other *State) *State {
	out := &State{}
	for i := Attr(0); i < attrCount; i++ {
		if ours := self.get(i); ours != other.get(i) {
			out.set(i, ours)
		}
	}
	return out
}

// Merge overwrites self with present values of other, in place.
// Attributes absent in other are left untouched.
func (self *State) Merge(other *State) {
	for _, e := range other.ReadPresent() {
		self.set(e.Attr, e.Value)
	}
}

// ResetMomentary sets every momentary attribute to absent, not false,
// so a trigger is transmitted once per activation.
func (self *State) ResetMomentary() {
	for i := Attr(0); i < attrCount; i++ {
		if schema[i].kind == Momentary {
			self.set(i, Absent)
		}
	}
}

// Equal compares over full schema, absent == absent. Order is ignored.
func (self *State) Equal(other *State) bool {
	return self.values == other.values
}

func (self *State) Clone() *State {
	out := &State{
		seen:   self.seen,
		values: self.values,
		order:  make([]Attr, len(self.order)),
	}
	copy(out.order, self.order)
	return out
}

// String formats present entries for logs: "throttle=0.5, sas=True".
func (self *State) String() string {
	present := self.ReadPresent()
	parts := make([]string, len(present))
	for i, e := range present {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func (self *State) GoString() string { return fmt.Sprintf("panel.State{%s}", self.String()) }
