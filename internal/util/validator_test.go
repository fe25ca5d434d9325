package util

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount_Valid(t *testing.T) {
	testCases := map[string]string{
		"0.01":       "0.01",
		"1":          "1",
		" 100.5 ":    "100.5",
		"9999999.99": "9999999.99",
		"12.340":     "12.34",
	}

	for in, want := range testCases {
		got, err := ParseAmount(in)
		if err != nil {
			t.Errorf("ParseAmount(%q) error = %v, want nil", in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	testCases := []string{"", "   ", "abc", "0", "0.001", "0.005", "12.345", "-0.01", "-100", "NaN", "10000000", "1e400"}

	for _, in := range testCases {
		if _, err := ParseAmount(in); err == nil {
			t.Errorf("ParseAmount(%q) error = nil, want error", in)
		}
	}
}

func TestParseOptionalAmount(t *testing.T) {
	if _, err := ParseOptionalAmount("0.005"); err == nil {
		t.Error("ParseOptionalAmount(\"0.005\") error = nil, want error")
	}
	if d, err := ParseOptionalAmount(""); err != nil || !d.IsZero() {
		t.Errorf("ParseOptionalAmount(\"\") = %s, %v, want 0, nil", d, err)
	}
	if d, err := ParseOptionalAmount("0"); err != nil || !d.IsZero() {
		t.Errorf("ParseOptionalAmount(\"0\") = %s, %v, want 0, nil", d, err)
	}
	if d, err := ParseOptionalAmount("10"); err != nil || !d.Equal(decimal.NewFromInt(10)) {
		t.Errorf("ParseOptionalAmount(\"10\") = %s, %v, want 10, nil", d, err)
	}
	for _, in := range []string{"-1", "x"} {
		if _, err := ParseOptionalAmount(in); err == nil {
			t.Errorf("ParseOptionalAmount(%q) error = nil, want error", in)
		}
	}
}

func TestValidateAmount_Zero(t *testing.T) {
	if err := ValidateAmount(decimal.Zero); err == nil {
		t.Error("ValidateAmount(0) error = nil, want error")
	}
}

func TestValidateAmount_TooLarge(t *testing.T) {
	if err := ValidateAmount(decimal.NewFromInt(100000000)); err == nil {
		t.Error("ValidateAmount(100000000) error = nil, want error")
	}
}

func TestParseDate(t *testing.T) {
	valid := []string{"2024-01-01", "2024-12-31T08:30:00", "2025-06-15T00:00:00+08:00"}
	for _, s := range valid {
		if _, err := ParseDate(s); err != nil {
			t.Errorf("ParseDate(%q) error = %v, want nil", s, err)
		}
	}

	saved := time.Local
	time.Local = time.FixedZone("PHT", 8*60*60)
	defer func() { time.Local = saved }()
	got, err := ParseDate("2025-12-01")
	if err != nil {
		t.Fatalf("ParseDate(\"2025-12-01\") error = %v", err)
	}
	if want := time.Date(2025, 12, 1, 0, 0, 0, 0, time.Local); !got.Equal(want) {
		t.Errorf("ParseDate(\"2025-12-01\") = %s, want local midnight %s", got, want)
	}

	invalid := []string{"", "2024/01/01", "01-01-2024", "2024-13-01", "not-a-date"}
	for _, s := range invalid {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) error = nil, want error", s)
		}
	}
}

func TestValidateCategory(t *testing.T) {
	for _, category := range []string{"Food & Dining", "Salary", "Utilities"} {
		if err := ValidateCategory(category); err != nil {
			t.Errorf("ValidateCategory(%q) error = %v, want nil", category, err)
		}
	}
	if err := ValidateCategory(""); err == nil {
		t.Error("ValidateCategory(\"\") error = nil, want error")
	}
	if err := ValidateCategory("a category name that is clearly far too long"); err == nil {
		t.Error("ValidateCategory() with long string error = nil, want error")
	}
}
