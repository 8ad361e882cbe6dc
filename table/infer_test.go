package table

import (
	"testing"
	"time"
)

func TestInferScalar(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
	}{
		{"3.14", KindNumber},
		{"-42", KindNumber},
		{"1e3", KindNumber},
		{"2024-01-05", KindDateTime},
		{"2024-01-05T10:30:00Z", KindDateTime},
		{"2024-01-05 10:30:00", KindDateTime},
		{"hello", KindText},
		{"", KindText},
		{"NaN", KindText},
		{"2024", KindNumber},
	}
	for _, tt := range tests {
		got := InferScalar(tt.in)
		if got.Kind != tt.kind {
			t.Errorf("InferScalar(%q) kind = %s, want %s", tt.in, got.Kind, tt.kind)
		}
	}
}

func TestInferScalarValues(t *testing.T) {
	if v := InferScalar("3.14"); v.Num != 3.14 {
		t.Errorf("number = %v, want 3.14", v.Num)
	}
	want := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	if v := InferScalar("2024-01-05"); !v.Time.Equal(want) {
		t.Errorf("datetime = %v, want %v", v.Time, want)
	}
	if v := InferScalar(""); v.Str != "" {
		t.Errorf("empty text = %q, want empty", v.Str)
	}
}

func TestValueStringRoundTrip(t *testing.T) {
	for _, in := range []string{"3.14", "2024-01-05", "2024-01-05T10:30:00Z", "hello", "100"} {
		v := InferScalar(in)
		back := InferScalar(v.String())
		if !v.Equal(back) {
			t.Errorf("%q: %v does not survive String() (%q)", in, v, v.String())
		}
	}
}
