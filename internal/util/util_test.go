package util_test

import (
	"errors"
	"testing"

	"github.com/esm-tools/cadence/internal/util"
)

func TestMultiErrorEmpty(t *testing.T) {
	var m util.MultiError
	if err := m.Err(); err != nil {
		t.Errorf("empty MultiError should yield nil, got %v", err)
	}
}

func TestMultiErrorSkipsNil(t *testing.T) {
	var m util.MultiError
	m.Add(nil)
	m.Add(errors.New("one"))
	m.Add(nil)
	m.Add(errors.New("two"))

	err := m.Err()
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if got := err.Error(); got != "one; two" {
		t.Errorf("expected %q, got %q", "one; two", got)
	}
	if len(m.Errors) != 2 {
		t.Errorf("expected 2 collected errors, got %d", len(m.Errors))
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 40, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"this string is definitely too long", 10, "this st..."},
		{"abc", 2, "abc"},
	}
	for _, c := range cases {
		if got := util.Truncate(c.in, c.max); got != c.want {
			t.Errorf("Truncate(%q, %d): expected %q, got %q", c.in, c.max, c.want, got)
		}
	}
}
