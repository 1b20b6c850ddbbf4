package soap

import "testing"

const cdType = "urn:schemas-upnp-org:service:ContentDirectory:1"

func TestBuildAndParseActionRequest(t *testing.T) {
	data := BuildActionRequest(cdType, "Browse", []Arg{
		{Name: "ObjectID", Value: "0"},
		{Name: "BrowseFlag", Value: "BrowseDirectChildren"},
	})

	env, err := ParseEnvelope(data)
	if err != nil {
		t.Fatal(err)
	}
	req, err := ParseActionRequest(env)
	if err != nil {
		t.Fatal(err)
	}
	if req.Name != "Browse" {
		t.Fatalf("Name = %q, want Browse", req.Name)
	}
	if req.ServiceType != cdType {
		t.Fatalf("ServiceType = %q, want %q", req.ServiceType, cdType)
	}
	if req.Args["ObjectID"] != "0" {
		t.Fatalf("ObjectID = %q, want 0", req.Args["ObjectID"])
	}
	if len(req.ArgOrder) != 2 || req.ArgOrder[0] != "ObjectID" {
		t.Fatalf("ArgOrder = %v, want [ObjectID BrowseFlag]", req.ArgOrder)
	}
}

func TestBuildAndParseActionResponse(t *testing.T) {
	data := BuildActionResponse(cdType, "Browse", []Arg{
		{Name: "Result", Value: "<DIDL-Lite/>"},
		{Name: "NumberReturned", Value: "0"},
	})

	env, err := ParseEnvelope(data)
	if err != nil {
		t.Fatal(err)
	}
	resp, fault, err := ParseActionResponse(env)
	if err != nil {
		t.Fatal(err)
	}
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if resp.Name != "BrowseResponse" {
		t.Fatalf("Name = %q, want BrowseResponse", resp.Name)
	}
	if resp.Values["NumberReturned"] != "0" {
		t.Fatalf("NumberReturned = %q, want 0", resp.Values["NumberReturned"])
	}
}

func TestBuildAndParseFault(t *testing.T) {
	f := NewFault(ErrNoSuchObject, "")
	data := BuildFaultEnvelope(f)

	if !IsFaultXML(data) {
		t.Fatal("IsFaultXML should detect the fault body")
	}

	env, err := ParseEnvelope(data)
	if err != nil {
		t.Fatal(err)
	}
	resp, fault, err := ParseActionResponse(env)
	if err != nil {
		t.Fatal(err)
	}
	if resp != nil {
		t.Fatalf("expected no response, got %+v", resp)
	}
	if fault.ErrorCode != ErrNoSuchObject {
		t.Fatalf("ErrorCode = %d, want %d", fault.ErrorCode, ErrNoSuchObject)
	}
	if fault.ErrorDescription != "No Such Object" {
		t.Fatalf("ErrorDescription = %q, want default", fault.ErrorDescription)
	}
}

func TestSOAPActionHeader(t *testing.T) {
	got := SOAPActionHeader(cdType, "Browse")
	want := `"` + cdType + `#Browse"`
	if got != want {
		t.Fatalf("SOAPActionHeader = %q, want %q", got, want)
	}
}
