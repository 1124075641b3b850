package jsonx

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

type payload struct {
	Name  Field[string] `json:"name"`
	Count Field[int64]  `json:"count"`
}

func TestFieldStates(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantSet  bool
		wantNull bool
	}{
		{"omitted", `{}`, false, false},
		{"null", `{"name": null}`, true, true},
		{"value", `{"name": "cam1"}`, true, false},
		{"zero value", `{"name": ""}`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatal(err)
			}
			if p.Name.IsSet() != tt.wantSet {
				t.Errorf("IsSet() = %v, want %v", p.Name.IsSet(), tt.wantSet)
			}
			if p.Name.IsNull() != tt.wantNull {
				t.Errorf("IsNull() = %v, want %v", p.Name.IsNull(), tt.wantNull)
			}
		})
	}
}

func TestFieldGet(t *testing.T) {
	var p payload
	if err := json.Unmarshal([]byte(`{"name":"cam1","count":0}`), &p); err != nil {
		t.Fatal(err)
	}

	if v, ok := p.Name.Get(); !ok || v != "cam1" {
		t.Errorf("Name.Get() = (%q, %v)", v, ok)
	}
	// A present zero value is still a value.
	if v, ok := p.Count.Get(); !ok || v != 0 {
		t.Errorf("Count.Get() = (%d, %v), want (0, true)", v, ok)
	}
}

func TestFieldTypeMismatch(t *testing.T) {
	var p payload
	if err := json.Unmarshal([]byte(`{"count":"many"}`), &p); err == nil {
		t.Error("expected error for string into int64 field")
	}
}

func TestParseJSONBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"cam1","unknown":42}`))
	var p payload
	if err := ParseJSONBody(req, &p); err != nil {
		t.Fatalf("ParseJSONBody() error: %v (unknown fields must be tolerated)", err)
	}
	if v, _ := p.Name.Get(); v != "cam1" {
		t.Errorf("Name = %q", v)
	}
}

func TestParseJSONBodyEmpty(t *testing.T) {
	for _, body := range []string{"", "   \n\t "} {
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))
		var p payload
		if err := ParseJSONBody(req, &p); err != ErrEmptyBody {
			t.Errorf("body %q: err = %v, want ErrEmptyBody", body, err)
		}
	}
}
