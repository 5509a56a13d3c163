package strpool

import "testing"

func TestInternDeduplicates(t *testing.T) {
	p := New()
	i1, err := p.Intern("ola")
	if err != nil {
		t.Fatal(err)
	}
	i2, err := p.Intern("mundo")
	if err != nil {
		t.Fatal(err)
	}
	i3, err := p.Intern("ola")
	if err != nil {
		t.Fatal(err)
	}
	if i1 != i3 {
		t.Errorf("Intern(%q) returned different indices: %d, %d", "ola", i1, i3)
	}
	if i1 == i2 {
		t.Errorf("distinct strings got the same index %d", i1)
	}
}

func TestRoundTrip(t *testing.T) {
	p := New()
	in := []string{"a", "bb", "ccc", "", "a"}
	idx := make([]int, len(in))
	var err error
	for n, s := range in {
		idx[n], err = p.Intern(s)
		if err != nil {
			t.Fatal(err)
		}
	}
	for n, s := range in {
		if got := p.At(idx[n]); got != s {
			t.Errorf("At(%d) = %q, want %q", idx[n], got, s)
		}
	}
}

func TestFrozenBounds(t *testing.T) {
	f := NewFrozen([]string{"x", "y"})
	if s, err := f.At(1); err != nil || s != "y" {
		t.Errorf("At(1) = %q, %v", s, err)
	}
	if _, err := f.At(2); err == nil {
		t.Error("expected out-of-range error")
	}
	if _, err := f.At(-1); err == nil {
		t.Error("expected out-of-range error")
	}
}
