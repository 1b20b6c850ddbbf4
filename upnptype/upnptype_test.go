package upnptype

import "testing"

func TestParseRoundTrip(t *testing.T) {
	for name, typ := range names {
		if Parse(name) != typ {
			t.Fatalf("Parse(%q) did not round-trip", name)
		}
		if typ.String() != name {
			t.Fatalf("Type(%d).String() = %q, want %q", typ, typ.String(), name)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if Parse("not-a-type") != Unknown {
		t.Fatal("expected Unknown for unrecognized type name")
	}
}

func TestCastInt(t *testing.T) {
	v, err := UI1.Cast("200")
	if err != nil {
		t.Fatal(err)
	}
	if v.(uint8) != 200 {
		t.Fatalf("got %v", v)
	}

	if _, err := UI1.Cast("300"); err == nil {
		t.Fatal("expected overflow error casting 300 to ui1")
	}

	if _, err := I1.Cast(-200); err == nil {
		t.Fatal("expected underflow error casting -200 to i1")
	}
}

func TestCastBoolean(t *testing.T) {
	for _, s := range []string{"1", "true", "TRUE"} {
		v, err := Boolean.Cast(s)
		if err != nil || v != true {
			t.Fatalf("Boolean.Cast(%q) = %v, %v", s, v, err)
		}
	}
	for _, s := range []string{"0", "false"} {
		v, err := Boolean.Cast(s)
		if err != nil || v != false {
			t.Fatalf("Boolean.Cast(%q) = %v, %v", s, v, err)
		}
	}
	if _, err := Boolean.Cast("maybe"); err == nil {
		t.Fatal("expected error for invalid boolean string")
	}
}

func TestCastBinary(t *testing.T) {
	v, err := BinHex.Cast("48656c6c6f")
	if err != nil {
		t.Fatal(err)
	}
	if string(v.([]byte)) != "Hello" {
		t.Fatalf("got %q", v)
	}

	v2, err := BinBase64.Cast("SGVsbG8=")
	if err != nil {
		t.Fatal(err)
	}
	if string(v2.([]byte)) != "Hello" {
		t.Fatalf("got %q", v2)
	}
}

func TestCmp(t *testing.T) {
	cmp, err := UI4.Cmp("10", "20")
	if err != nil {
		t.Fatal(err)
	}
	if cmp != -1 {
		t.Fatalf("got %d, want -1", cmp)
	}

	cmp, err = String.Cmp("b", "a")
	if err != nil {
		t.Fatal(err)
	}
	if cmp != 1 {
		t.Fatalf("got %d, want 1", cmp)
	}
}

func TestCmpNotComparable(t *testing.T) {
	if _, err := BinHex.Cmp("00", "01"); err == nil {
		t.Fatal("expected error: binary types have no ordering")
	}
}

func TestEqualBinary(t *testing.T) {
	eq, err := BinHex.Equal("0a0b", "0A0B")
	if err != nil {
		t.Fatal(err)
	}
	if !eq {
		t.Fatal("expected hex values to compare equal case-insensitively")
	}
}

func TestRange(t *testing.T) {
	r, err := UI2.NewRange(100, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Min.(uint16) != 10 || r.Max.(uint16) != 100 {
		t.Fatalf("NewRange did not normalize swapped bounds: %+v", r)
	}

	in, err := UI2.InRange(uint16(50), r)
	if err != nil || !in {
		t.Fatalf("InRange(50) = %v, %v, want true", in, err)
	}

	in, err = UI2.InRange(uint16(200), r)
	if err != nil || in {
		t.Fatalf("InRange(200) = %v, %v, want false", in, err)
	}
}

func TestArithmetic(t *testing.T) {
	v, err := I4.Add(int32(2), int32(3))
	if err != nil {
		t.Fatal(err)
	}
	if v.(int32) != 5 {
		t.Fatalf("got %v", v)
	}

	if _, err := I4.Div(int32(1), int32(0)); err == nil {
		t.Fatal("expected division by zero error")
	}
}

func TestDefault(t *testing.T) {
	if Boolean.Default() != false {
		t.Fatal("Boolean.Default() should be false")
	}
	if String.Default() != "" {
		t.Fatal("String.Default() should be empty string")
	}
}
