package content

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFromTextAndBack(t *testing.T) {
	c := FromText("hello device")
	if c.Type() != TypeText {
		t.Fatalf("expect text type, got %s", c.Type())
	}
	if c.MediaType() != "text/plain" {
		t.Fatalf("expect default media type, got %s", c.MediaType())
	}
	s, err := c.Text()
	if err != nil || s != "hello device" {
		t.Fatalf("round trip failed: %q %v", s, err)
	}
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	if _, err := FromJSON([]byte(`{"a":`)); !errors.Is(err, ErrNotJSON) {
		t.Fatalf("expect ErrNotJSON, got %v", err)
	}
}

func TestBinaryRefusesTextAccess(t *testing.T) {
	c := FromBinary([]byte{0xde, 0xad}, "")
	if c.MediaType() != "application/octet-stream" {
		t.Fatalf("expect octet-stream default, got %s", c.MediaType())
	}
	if _, err := c.Text(); !errors.Is(err, ErrTypeAccess) {
		t.Fatalf("binary must not read as text, got %v", err)
	}
	if _, err := c.JSON(); !errors.Is(err, ErrTypeAccess) {
		t.Fatalf("binary must not read as json, got %v", err)
	}
}

func TestBytesReturnsCopy(t *testing.T) {
	src := []byte{1, 2, 3}
	c := FromBinary(src, "application/x-raw")
	src[0] = 9
	if c.Bytes()[0] != 1 {
		t.Fatalf("constructor must copy the caller's buffer")
	}
	out := c.Bytes()
	out[1] = 9
	if c.Bytes()[1] != 2 {
		t.Fatalf("accessor must hand out a copy")
	}
}

func TestWireRoundTrip(t *testing.T) {
	cases := []*Content{
		FromText("plain"),
		mustJSON(t, `{"k":1}`),
		FromBinary([]byte{0, 1, 2, 255}, "application/x-blob"),
		FromMedia(TypeImage, []byte{137, 80}, ""),
	}
	for _, in := range cases {
		raw, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal %s: %v", in.Type(), err)
		}
		var out Content
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("unmarshal %s: %v", in.Type(), err)
		}
		if !in.Equal(&out) {
			t.Fatalf("%s did not survive the wire: %s", in.Type(), raw)
		}
	}
}

func TestWireBinaryIsBase64(t *testing.T) {
	raw, _ := json.Marshal(FromBinary([]byte{1, 2, 3}, ""))
	var w map[string]any
	if err := json.Unmarshal(raw, &w); err != nil {
		t.Fatal(err)
	}
	if w["data"] != "AQID" {
		t.Fatalf("expect base64 payload, got %v", w["data"])
	}
}

func TestBuilderAndGetters(t *testing.T) {
	c, err := NewObject().
		SetString("name", "dht22").
		SetInt("pin", 4).
		SetBool("pullup", true).
		SetNumber("scale", 0.5).
		SetRaw("calib", []byte(`{"offset":-1}`)).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	if v, _ := c.GetString("name"); v != "dht22" {
		t.Fatalf("GetString: %q", v)
	}
	if v, _ := c.GetNumber("pin"); v != 4 {
		t.Fatalf("GetNumber: %v", v)
	}
	if v, _ := c.GetBool("pullup"); !v {
		t.Fatalf("GetBool: %v", v)
	}
	if v, _ := c.GetNumber("calib.offset"); v != -1 {
		t.Fatalf("nested path: %v", v)
	}
	if !c.Has("scale") || c.Has("missing") {
		t.Fatalf("Has misbehaves")
	}
}

func TestGetterTypeMismatch(t *testing.T) {
	c := mustJSON(t, `{"n":42}`)
	if _, err := c.GetString("n"); !errors.Is(err, ErrTypeAccess) {
		t.Fatalf("number read as string must fail, got %v", err)
	}
	if _, err := c.GetBool("n"); !errors.Is(err, ErrTypeAccess) {
		t.Fatalf("number read as bool must fail, got %v", err)
	}
}

func TestBuilderRejectsBadRaw(t *testing.T) {
	if _, err := NewObject().SetRaw("x", []byte(`{broken`)).Build(); err == nil {
		t.Fatalf("expect error for invalid raw fragment")
	}
}

func TestArrayAppend(t *testing.T) {
	c, err := NewArray().AppendString("a").AppendString("b").Build()
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := c.JSON()
	if string(raw) != `["a","b"]` {
		t.Fatalf("got %s", raw)
	}
}

func mustJSON(t *testing.T, s string) *Content {
	t.Helper()
	c, err := FromJSON([]byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestWireInfersTypeFromPayloadField(t *testing.T) {
	cases := []struct {
		raw  string
		want Type
	}{
		{`{"text":"hi"}`, TypeText},
		{`{"json":{"a":1}}`, TypeJSON},
		{`{"data":"3q0="}`, TypeBinary},
		{`{}`, TypeUnknown},
	}
	for _, tc := range cases {
		var c Content
		if err := json.Unmarshal([]byte(tc.raw), &c); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.raw, err)
		}
		if c.Type() != tc.want {
			t.Fatalf("%s: expect %s, got %s", tc.raw, tc.want, c.Type())
		}
	}

	var c Content
	if err := json.Unmarshal([]byte(`{"text":"hi"}`), &c); err != nil {
		t.Fatal(err)
	}
	if s, err := c.Text(); err != nil || s != "hi" {
		t.Fatalf("typeless text payload must survive: %q %v", s, err)
	}
}
