package schema

import (
	"iter"

	"github.com/beevik/etree"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/objectstore"
)

// Action is the descriptor for one SOAP-invocable operation of a service, as
// declared under SCPD's <actionList> (spec §3 "action").
type Action struct {
	name      string
	arguments *ArgumentSet
}

func NewAction(name string) *Action {
	return &Action{name: name, arguments: NewArgumentSet()}
}

func (a *Action) Name() string      { return a.name }
func (a *Action) TypeID() string    { return "Action" }
func (a *Action) Arguments() *ArgumentSet { return a.arguments }

// AddArgument appends arg to the action's formal argument list. At most one
// argument may be the action's retval (UPnP DA §3.3.2); a second one marked
// via SetRetval is demoted back to a plain out argument rather than
// silently accepted as a second retval.
func (a *Action) AddArgument(arg *Argument) *Action {
	if arg.IsRetval() && a.hasRetval() {
		arg.retval = false
	}
	a.arguments.Insert(arg)
	return a
}

func (a *Action) hasRetval() bool {
	for existing := range a.arguments.All() {
		if existing.IsRetval() {
			return true
		}
	}
	return false
}

// Argument looks up one of the action's formal arguments by name,
// case-sensitively as SCPD requires.
func (a *Action) Argument(name string) (*Argument, bool) {
	return a.arguments.Get(name)
}

func (a *Action) ToXMLElement() *etree.Element {
	elem := etree.NewElement("action")
	elem.CreateElement("name").SetText(a.name)
	if a.arguments.Len() > 0 {
		elem.AddChild(a.arguments.ToXMLElement())
	}
	return elem
}

// ActionSet is a name-keyed collection of Actions, case-insensitively
// searchable since some control points send action names with mismatched
// case despite the spec requiring an exact match (spec §9 "compatibility").
type ActionSet objectstore.ObjectSet[*Action]

func NewActionSet() ActionSet {
	return ActionSet(objectstore.NewObjectSet[*Action]())
}

func (s *ActionSet) Insert(a *Action) {
	(*objectstore.ObjectSet[*Action])(s).Insert(a)
}

func (s *ActionSet) Get(name string) (*Action, bool) {
	return (*objectstore.ObjectSet[*Action])(s).Get(name)
}

// GetFold looks up an action by name, falling back to a case-insensitive
// scan if the exact-case lookup misses. Used by the SOAP dispatcher (spec
// §6 "action invocation"), not by SCPD generation.
func (s *ActionSet) GetFold(name string) (*Action, bool) {
	if a, ok := s.Get(name); ok {
		return a, true
	}
	for a := range s.All() {
		if eqFold(a.Name(), name) {
			return a, true
		}
	}
	return nil, false
}

func (s *ActionSet) Len() int { return (*objectstore.ObjectSet[*Action])(s).Len() }

func (s *ActionSet) All() iter.Seq[*Action] {
	return (*objectstore.ObjectSet[*Action])(s).All()
}

func (s *ActionSet) ToXMLElement() *etree.Element {
	elem := etree.NewElement("actionList")
	for a := range s.All() {
		elem.AddChild(a.ToXMLElement())
	}
	return elem
}
