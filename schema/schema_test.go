package schema

import (
	"strings"
	"testing"
	"time"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/upnptype"
)

func buildSampleSCPD(t *testing.T) *SCPD {
	t.Helper()
	scpd := NewSCPD()

	sysID := NewStateVariable("SystemUpdateID", upnptype.UI4).SetSendEvents()
	if err := sysID.SetDefault(uint32(0)); err != nil {
		t.Fatal(err)
	}
	scpd.AddVariable(sysID)

	objID := NewStateVariable("A_ARG_TYPE_ObjectID", upnptype.String)
	scpd.AddVariable(objID)

	browse := NewAction("Browse")
	browse.AddArgument(NewArgument("ObjectID", In, "A_ARG_TYPE_ObjectID"))
	browse.AddArgument(NewArgument("UpdateID", Out, "SystemUpdateID").SetRetval())
	scpd.AddAction(browse)

	return scpd
}

func TestSCPDRoundTrip(t *testing.T) {
	original := buildSampleSCPD(t)

	var buf strings.Builder
	doc := original.ToXMLDocument()
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseSCPD(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatal(err)
	}

	if parsed.Variables.Len() != original.Variables.Len() {
		t.Fatalf("variable count mismatch: got %d, want %d", parsed.Variables.Len(), original.Variables.Len())
	}
	if parsed.Actions.Len() != original.Actions.Len() {
		t.Fatalf("action count mismatch: got %d, want %d", parsed.Actions.Len(), original.Actions.Len())
	}

	sysID, ok := parsed.Variables.Get("SystemUpdateID")
	if !ok {
		t.Fatal("SystemUpdateID missing after round-trip")
	}
	if sysID.Type() != upnptype.UI4 {
		t.Fatalf("SystemUpdateID type = %v, want ui4", sysID.Type())
	}
	if !sysID.IsEvented() {
		t.Fatal("SystemUpdateID should still be evented after round-trip")
	}

	browse, ok := parsed.Actions.Get("Browse")
	if !ok {
		t.Fatal("Browse action missing after round-trip")
	}
	updateArg, ok := browse.Argument("UpdateID")
	if !ok || !updateArg.IsRetval() {
		t.Fatal("Browse.UpdateID should round-trip as retval")
	}
}

func TestParseSCPDRejectsUnknownType(t *testing.T) {
	bad := `<scpd xmlns="urn:schemas-upnp-org:service-1-0">
		<specVersion><major>1</major><minor>0</minor></specVersion>
		<serviceStateTable>
			<stateVariable sendEvents="no">
				<name>Foo</name>
				<dataType>not-a-type</dataType>
			</stateVariable>
		</serviceStateTable>
		<actionList></actionList>
	</scpd>`

	if _, err := ParseSCPD(strings.NewReader(bad)); err == nil {
		t.Fatal("expected InvalidSyntax error for unknown dataType")
	}
}

func TestParseSCPDRejectsUnknownRelatedStateVariable(t *testing.T) {
	bad := `<scpd xmlns="urn:schemas-upnp-org:service-1-0">
		<specVersion><major>1</major><minor>0</minor></specVersion>
		<serviceStateTable>
			<stateVariable sendEvents="no">
				<name>A_ARG_TYPE_Name</name>
				<dataType>string</dataType>
			</stateVariable>
		</serviceStateTable>
		<actionList>
			<action>
				<name>SetName</name>
				<argumentList>
					<argument>
						<name>NewName</name>
						<direction>in</direction>
						<relatedStateVariable>NoSuchVariable</relatedStateVariable>
					</argument>
				</argumentList>
			</action>
		</actionList>
	</scpd>`

	if _, err := ParseSCPD(strings.NewReader(bad)); err == nil {
		t.Fatal("expected InvalidSyntax error for an argument referring to an unknown state variable")
	}
}

func TestParseSCPDRejectsDuplicateRetval(t *testing.T) {
	bad := `<scpd xmlns="urn:schemas-upnp-org:service-1-0">
		<specVersion><major>1</major><minor>0</minor></specVersion>
		<serviceStateTable>
			<stateVariable sendEvents="no">
				<name>A</name>
				<dataType>string</dataType>
			</stateVariable>
			<stateVariable sendEvents="no">
				<name>B</name>
				<dataType>string</dataType>
			</stateVariable>
		</serviceStateTable>
		<actionList>
			<action>
				<name>GetBoth</name>
				<argumentList>
					<argument>
						<name>OutA</name>
						<direction>out</direction>
						<relatedStateVariable>A</relatedStateVariable>
						<retval/>
					</argument>
					<argument>
						<name>OutB</name>
						<direction>out</direction>
						<relatedStateVariable>B</relatedStateVariable>
						<retval/>
					</argument>
				</argumentList>
			</action>
		</actionList>
	</scpd>`

	if _, err := ParseSCPD(strings.NewReader(bad)); err == nil {
		t.Fatal("expected InvalidSyntax error for an action with two retval arguments")
	}
}

func TestActionAddArgumentDemotesSecondRetval(t *testing.T) {
	a := NewAction("GetBoth")
	a.AddArgument(NewArgument("OutA", Out, "A").SetRetval())
	a.AddArgument(NewArgument("OutB", Out, "B").SetRetval())

	outA, _ := a.Argument("OutA")
	outB, _ := a.Argument("OutB")
	if !outA.IsRetval() {
		t.Fatal("first retval argument should stay marked")
	}
	if outB.IsRetval() {
		t.Fatal("second retval argument should be demoted to a plain out argument")
	}
}

func TestStateValueAllowedValues(t *testing.T) {
	model := NewStateVariable("TransportState", upnptype.String)
	if err := model.SetAllowedValues("STOPPED", "PLAYING", "PAUSED_PLAYBACK"); err != nil {
		t.Fatal(err)
	}

	val := NewStateValue(model)
	changed, err := val.SetValue("PLAYING")
	if err != nil || !changed {
		t.Fatalf("SetValue(PLAYING) = %v, %v", changed, err)
	}

	if _, err := val.SetValue("FOO"); err == nil {
		t.Fatal("expected InvalidParameters for a value outside the allowed list")
	}

	changed, err = val.SetValue("PLAYING")
	if err != nil || changed {
		t.Fatal("setting the same value again should report no change")
	}
}

func TestStateValueRange(t *testing.T) {
	model := NewStateVariable("Volume", upnptype.UI2)
	if err := model.SetRange(0, 100, 1); err != nil {
		t.Fatal(err)
	}
	model.SetSendEvents()

	val := NewStateValue(model)
	if _, err := val.SetValue(150); err == nil {
		t.Fatal("expected InvalidParameters for out-of-range value")
	}

	changed, err := val.SetValue(42)
	if err != nil || !changed {
		t.Fatalf("SetValue(42) = %v, %v", changed, err)
	}
	if !val.PendingEvent() {
		t.Fatal("evented variable should have a pending event after a change")
	}
	val.ClearPending()
	if val.PendingEvent() {
		t.Fatal("ClearPending should reset the pending flag")
	}
}

func TestStateValueIncrement(t *testing.T) {
	model := NewStateVariable("SystemUpdateID", upnptype.UI4).SetSendEvents()
	if err := model.SetDefault(uint32(0)); err != nil {
		t.Fatal(err)
	}

	val := NewStateValue(model)
	changed, err := val.Increment()
	if err != nil || !changed {
		t.Fatalf("Increment() = %v, %v", changed, err)
	}
	if val.StringValue() != "1" {
		t.Fatalf("StringValue() = %q, want %q", val.StringValue(), "1")
	}

	if _, err := val.Increment(); err != nil {
		t.Fatalf("second Increment() failed: %v", err)
	}
	if val.StringValue() != "2" {
		t.Fatalf("StringValue() = %q, want %q", val.StringValue(), "2")
	}
}

func TestStateValueSetIncrementUnknownVariable(t *testing.T) {
	table := NewStateVariableSet()
	set := NewStateValueSet(&table)
	if _, err := set.Increment("NoSuchVariable"); err == nil {
		t.Fatal("expected NotFound for an unknown variable name")
	}
}

func TestLastChangeAggregator(t *testing.T) {
	agg := NewLastChangeAggregator("LastChange", "urn:schemas-upnp-org:metadata-1-0/AVT/")

	agg.Record(0, "TransportState", "PLAYING")
	agg.Record(0, "TransportState", "PAUSED_PLAYBACK")
	agg.Record(0, "CurrentTrack", "1")

	if !agg.HasPending() {
		t.Fatal("expected pending changes")
	}

	xml, ok := agg.Publish(time.Now())
	if !ok {
		t.Fatal("expected Publish to succeed")
	}
	if !strings.Contains(xml, "PAUSED_PLAYBACK") || strings.Contains(xml, `val="PLAYING"`) {
		t.Fatalf("expected only the latest TransportState value, got: %s", xml)
	}
	if !strings.Contains(xml, "CurrentTrack") {
		t.Fatalf("expected CurrentTrack in payload, got: %s", xml)
	}

	if agg.HasPending() {
		t.Fatal("Publish should clear the pending set")
	}

	if _, ok := agg.Publish(time.Now()); ok {
		t.Fatal("a second Publish with nothing pending should report false")
	}
}
