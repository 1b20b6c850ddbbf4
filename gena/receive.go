package gena

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// ParsePropertySet decodes an inbound NOTIFY body's "<e:propertyset>" into
// a flat name→value map (spec §4.4 "Event receipt (control-point side)").
// LastChange is returned as-is (its own inner XML, still string-encoded);
// callers that need the decomposed per-variable view call
// DecomposeLastChange on that value.
func ParsePropertySet(body []byte) (map[string]string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("gena: parsing propertyset: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("gena: empty propertyset body")
	}

	values := make(map[string]string)
	for _, prop := range root.ChildElements() {
		for _, v := range prop.ChildElements() {
			values[v.Tag] = v.Text()
		}
	}
	return values, nil
}

// DecomposeLastChange parses a LastChange variable's value — an <Event>
// document with one <InstanceID val="N"> child per instance, itself
// holding one element per changed variable with a "val" attribute (spec
// §4.1, §4.4: "decompose any LastChange variable into per-variable updates
// by parsing its inner <InstanceID val="0">…</InstanceID> child").
func DecomposeLastChange(xmlValue string) (map[uint32]map[string]string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlValue); err != nil {
		return nil, fmt.Errorf("gena: parsing LastChange payload: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("gena: empty LastChange payload")
	}

	out := make(map[uint32]map[string]string)
	for _, inst := range root.SelectElements("InstanceID") {
		var instanceID uint32
		if attr := inst.SelectAttr("val"); attr != nil {
			if n, err := strconv.ParseUint(attr.Value, 10, 32); err == nil {
				instanceID = uint32(n)
			}
		}
		vars := make(map[string]string)
		for _, v := range inst.ChildElements() {
			if attr := v.SelectAttr("val"); attr != nil {
				vars[v.Tag] = attr.Value
			}
		}
		out[instanceID] = vars
	}
	return out, nil
}
