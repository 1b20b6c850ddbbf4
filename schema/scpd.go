package schema

import (
	"io"

	"github.com/beevik/etree"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/xerr"
)

// SCPD is a service's control protocol description: the action list and
// service state table fetched from a service's SCPDURL (spec §3 "service
// description"). The teacher only ever emitted this document; parsing is
// new here because the control package needs to learn a remote service's
// actions/variables before it can invoke or subscribe to anything.
type SCPD struct {
	SpecVersionMajor int
	SpecVersionMinor int
	Actions          ActionSet
	Variables        StateVariableSet
}

// NewSCPD returns an empty, UPnP-1.0-versioned SCPD ready to be populated by
// AddAction/AddVariable.
func NewSCPD() *SCPD {
	return &SCPD{
		SpecVersionMajor: 1,
		SpecVersionMinor: 0,
		Actions:          NewActionSet(),
		Variables:        NewStateVariableSet(),
	}
}

func (s *SCPD) AddAction(a *Action) *SCPD {
	s.Actions.Insert(a)
	return s
}

func (s *SCPD) AddVariable(sv *StateVariable) *SCPD {
	s.Variables.Insert(sv)
	return s
}

// ToXMLDocument renders the full SCPD XML document, ready to be served at a
// service's SCPDURL.
func (s *SCPD) ToXMLDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("scpd")
	root.CreateAttr("xmlns", "urn:schemas-upnp-org:service-1-0")

	spec := root.CreateElement("specVersion")
	spec.CreateElement("major").SetText(itoa(s.SpecVersionMajor))
	spec.CreateElement("minor").SetText(itoa(s.SpecVersionMinor))

	root.AddChild(s.Actions.ToXMLElement())
	root.AddChild(s.Variables.ToXMLElement())

	return doc
}

// ParseSCPD reads and validates an SCPD document from r, per UPnP DA §2.3.
// Returns xerr.InvalidSyntax for malformed XML or a <stateVariable> with an
// unrecognized dataType, since either makes the service unusable.
func ParseSCPD(r io.Reader) (*SCPD, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, xerr.Wrap(xerr.InvalidSyntax, err, "parsing SCPD document")
	}

	root := doc.SelectElement("scpd")
	if root == nil {
		return nil, xerr.New(xerr.InvalidSyntax, "SCPD document has no root <scpd> element")
	}

	s := NewSCPD()

	if spec := root.SelectElement("specVersion"); spec != nil {
		if major := spec.SelectElement("major"); major != nil {
			s.SpecVersionMajor = atoiOr(major.Text(), 1)
		}
		if minor := spec.SelectElement("minor"); minor != nil {
			s.SpecVersionMinor = atoiOr(minor.Text(), 0)
		}
	}

	if table := root.SelectElement("serviceStateTable"); table != nil {
		for _, varElem := range table.SelectElements("stateVariable") {
			sv, err := parseStateVariableXML(varElem)
			if err != nil {
				return nil, err
			}
			s.AddVariable(sv)
		}
	}

	if list := root.SelectElement("actionList"); list != nil {
		for _, actElem := range list.SelectElements("action") {
			a, err := parseActionXML(actElem, &s.Variables)
			if err != nil {
				return nil, err
			}
			s.AddAction(a)
		}
	}

	return s, nil
}

// parseActionXML parses one <action> element, rejecting (with
// xerr.InvalidSyntax, per spec §3/§4.1 "Parse SCPD") an argument whose
// relatedStateVariable names no variable in the service's state table, and
// an action declaring more than one retval argument.
func parseActionXML(elem *etree.Element, variables *StateVariableSet) (*Action, error) {
	nameEl := elem.SelectElement("name")
	if nameEl == nil {
		return nil, xerr.New(xerr.InvalidSyntax, "action missing name")
	}
	a := NewAction(nameEl.Text())

	retvalSeen := false
	if argsEl := elem.SelectElement("argumentList"); argsEl != nil {
		for _, argElem := range argsEl.SelectElements("argument") {
			argNameEl := argElem.SelectElement("name")
			dirEl := argElem.SelectElement("direction")
			relEl := argElem.SelectElement("relatedStateVariable")
			if argNameEl == nil || dirEl == nil || relEl == nil {
				return nil, xerr.New(xerr.InvalidSyntax, "action %s: argument missing name/direction/relatedStateVariable", a.Name())
			}
			if _, ok := variables.Get(relEl.Text()); !ok {
				return nil, xerr.New(xerr.InvalidSyntax, "action %s: argument %s refers to unknown state variable %s", a.Name(), argNameEl.Text(), relEl.Text())
			}
			dir := In
			if dirEl.Text() == "out" {
				dir = Out
			}
			arg := NewArgument(argNameEl.Text(), dir, relEl.Text())
			if argElem.SelectElement("retval") != nil {
				if retvalSeen {
					return nil, xerr.New(xerr.InvalidSyntax, "action %s: more than one retval argument", a.Name())
				}
				retvalSeen = true
				arg.SetRetval()
			}
			a.AddArgument(arg)
		}
	}

	return a, nil
}
