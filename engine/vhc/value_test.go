package vhc

import (
	"encoding/json"
	"testing"
)

func TestValue_JSONScalars(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{Num(4), "4"},
		{Num(2.5), "2.5"},
		{Str("Good Condition"), `"Good Condition"`},
		{Bool(true), "true"},
	}
	for _, c := range cases {
		data, err := json.Marshal(c.in)
		if err != nil {
			t.Fatalf("marshal %v: %v", c.in, err)
		}
		if string(data) != c.want {
			t.Errorf("marshal %v = %s, want %s", c.in, data, c.want)
		}

		var back Value
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if !back.Equal(c.in) {
			t.Errorf("round trip %v -> %v", c.in, back)
		}
	}
}

func TestValue_UnmarshalRejectsComposite(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"nested":1}`), &v); err == nil {
		t.Error("expected error for object value")
	}
	if err := json.Unmarshal([]byte(`[1,2]`), &v); err == nil {
		t.Error("expected error for array value")
	}
}

func TestValue_Key(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{Num(4), "4"},
		{Num(4.5), "4.5"},
		{Str("clean"), "clean"},
		{Bool(false), "false"},
	}
	for _, c := range cases {
		if got := c.in.Key(); got != c.want {
			t.Errorf("Key(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAnswer_JSONShape(t *testing.T) {
	depth := Num(2.5)
	a := Answer{ItemID: "tread-fl", Value: &depth, Notes: "outer edge wear", Photos: []string{"ph-1"}}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"itemId":"tread-fl","value":2.5,"notes":"outer edge wear","photos":["ph-1"]}`
	if string(data) != want {
		t.Errorf("answer JSON = %s, want %s", data, want)
	}

	// Absent value stays absent, not null.
	data, _ = json.Marshal(Answer{ItemID: "x"})
	if string(data) != `{"itemId":"x"}` {
		t.Errorf("empty answer JSON = %s", data)
	}
}
