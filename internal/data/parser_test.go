package data

import (
	"math"
	"testing"
	"time"
)

func TestFloatCoercion(t *testing.T) {
	cases := []struct {
		in    any
		want  float64
		valid bool
	}{
		{24.86, 24.86, true},
		{float64(0), 0, true},
		{"67.0011", 67.0011, true},
		{"-12.5", -12.5, true},
		{int(3), 3, true},
		{int64(4), 4, true},
		{"garbage", 0, false},
		{"", 0, false},
		{true, 0, false},
		{nil, 0, false},
		{[]any{1.0}, 0, false},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, c := range cases {
		got, ok := Float(c.in)
		if ok != c.valid {
			t.Errorf("Float(%v) valid = %v, want %v", c.in, ok, c.valid)
			continue
		}
		if ok && got != c.want {
			t.Errorf("Float(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIntTruncates(t *testing.T) {
	if got, ok := Int(42.9); !ok || got != 42 {
		t.Errorf("Int(42.9) = %d/%v, want 42/true", got, ok)
	}
	if _, ok := Int("x"); ok {
		t.Error("Int must reject non-numeric strings")
	}
}

func TestFieldLookup(t *testing.T) {
	payload := map[string]any{"latitude": 24.86, "absent": nil}

	if v, ok := Field(payload, "latitude"); !ok || v != 24.86 {
		t.Errorf("Field latitude = %v/%v", v, ok)
	}
	if _, ok := Field(payload, "missing"); ok {
		t.Error("missing key must report false")
	}
	if _, ok := Field(payload, "absent"); ok {
		t.Error("null value must report false")
	}
	if _, ok := Field("raw text payload", "latitude"); ok {
		t.Error("non-object payload must report false")
	}
}

func TestTimestampFormats(t *testing.T) {
	ref := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	if got, ok := Timestamp(float64(ref.UnixMilli())); !ok || !got.Equal(ref) {
		t.Errorf("epoch millis: got %v/%v", got, ok)
	}
	if got, ok := Timestamp(float64(ref.Unix())); !ok || !got.Equal(ref) {
		t.Errorf("epoch seconds: got %v/%v", got, ok)
	}
	if got, ok := Timestamp("2026-05-01T12:00:00Z"); !ok || !got.Equal(ref) {
		t.Errorf("RFC3339: got %v/%v", got, ok)
	}
	if _, ok := Timestamp("yesterday"); ok {
		t.Error("junk timestamp must report false")
	}
	if _, ok := Timestamp(float64(0)); ok {
		t.Error("zero timestamp must report false")
	}
	if _, ok := Timestamp(nil); ok {
		t.Error("nil timestamp must report false")
	}
}
