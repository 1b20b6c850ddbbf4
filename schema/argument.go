// Package schema implements the UPnP service description model: actions,
// arguments and state variables, with SCPD (spec §3 "service description")
// parsing and serialization via etree.
package schema

import (
	"iter"

	"github.com/beevik/etree"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/objectstore"
)

// Direction is an SCPD <argument><direction> value.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// Argument describes one formal parameter of an Action, as declared under
// SCPD's <argumentList> (spec §3 "action").
type Argument struct {
	name                  string
	direction             Direction
	relatedStateVariable  string
	retval                bool
}

// NewArgument builds an Argument bound to the state variable that supplies
// its type and value constraints.
func NewArgument(name string, direction Direction, relatedStateVariable string) *Argument {
	return &Argument{name: name, direction: direction, relatedStateVariable: relatedStateVariable}
}

func (a *Argument) Name() string                 { return a.name }
func (a *Argument) TypeID() string               { return "Argument" }
func (a *Argument) Direction() Direction         { return a.direction }
func (a *Argument) RelatedStateVariable() string { return a.relatedStateVariable }
func (a *Argument) IsRetval() bool               { return a.retval }

// SetRetval marks this (necessarily single, necessarily first) out argument
// as the action's return value, per UPnP DA §3.3.2.
func (a *Argument) SetRetval() *Argument {
	a.retval = true
	return a
}

func (a *Argument) ToXMLElement() *etree.Element {
	elem := etree.NewElement("argument")
	elem.CreateElement("name").SetText(a.name)
	elem.CreateElement("direction").SetText(a.direction.String())
	if a.retval {
		elem.CreateElement("retval")
	}
	elem.CreateElement("relatedStateVariable").SetText(a.relatedStateVariable)
	return elem
}

// ArgumentSet is a name-keyed, ordered-on-output collection of Arguments.
// Argument order matters for legacy control points that bind by position, so
// insertion order is tracked alongside the underlying ObjectSet[*Argument].
type ArgumentSet struct {
	objects objectstore.ObjectSet[*Argument]
	order   []string
}

func NewArgumentSet() *ArgumentSet {
	return &ArgumentSet{objects: objectstore.NewObjectSet[*Argument]()}
}

func (s *ArgumentSet) Insert(arg *Argument) {
	if !s.objects.Contains(arg) {
		s.order = append(s.order, arg.Name())
	}
	s.objects.Insert(arg)
}

func (s *ArgumentSet) Get(name string) (*Argument, bool) {
	return s.objects.Get(name)
}

func (s *ArgumentSet) Len() int { return s.objects.Len() }

// All iterates arguments in declaration order.
func (s *ArgumentSet) All() iter.Seq[*Argument] {
	return func(yield func(*Argument) bool) {
		for _, name := range s.order {
			arg, ok := s.objects.Get(name)
			if !ok {
				continue
			}
			if !yield(arg) {
				return
			}
		}
	}
}

// In iterates only the input arguments, in declaration order.
func (s *ArgumentSet) In() iter.Seq[*Argument] {
	return func(yield func(*Argument) bool) {
		for arg := range s.All() {
			if arg.direction == In {
				if !yield(arg) {
					return
				}
			}
		}
	}
}

// Out iterates only the output arguments, in declaration order.
func (s *ArgumentSet) Out() iter.Seq[*Argument] {
	return func(yield func(*Argument) bool) {
		for arg := range s.All() {
			if arg.direction == Out {
				if !yield(arg) {
					return
				}
			}
		}
	}
}

func (s *ArgumentSet) ToXMLElement() *etree.Element {
	elem := etree.NewElement("argumentList")
	for arg := range s.All() {
		elem.AddChild(arg.ToXMLElement())
	}
	return elem
}
