package option

import "testing"

func TestSomeNone(t *testing.T) {
	s := Some([]byte("img"))
	v, ok := s.Get()
	if !ok || string(v) != "img" {
		t.Errorf("Some.Get() = %q, %v", v, ok)
	}
	if !s.IsSome() || s.IsNone() {
		t.Error("Some reports absent")
	}

	n := None[string]()
	if _, ok := n.Get(); ok {
		t.Error("None.Get() reported a value")
	}
	if n.IsSome() || !n.IsNone() {
		t.Error("None reports present")
	}
}

func TestOrElse(t *testing.T) {
	if got := None[int]().OrElse(7); got != 7 {
		t.Errorf("None.OrElse(7) = %d", got)
	}
	if got := Some(3).OrElse(7); got != 3 {
		t.Errorf("Some(3).OrElse(7) = %d", got)
	}
	// the zero value counts as present when wrapped
	if got := Some(0).OrElse(7); got != 0 {
		t.Errorf("Some(0).OrElse(7) = %d", got)
	}
}
