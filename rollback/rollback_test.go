package rollback

import (
	"errors"
	"testing"
)

func TestDrainReverseOrder(t *testing.T) {
	l := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		l.Push("step", func() error {
			order = append(order, i)
			return nil
		})
	}
	if n := l.Drain(); n != 5 {
		t.Fatalf("expected 5 compensations executed, got %d", n)
	}
	for i, v := range order {
		if v != 4-i {
			t.Fatalf("compensations ran out of order: %v", order)
		}
	}
}

func TestDrainEmptiesLog(t *testing.T) {
	l := New()
	l.Push("a", func() error { return nil })
	l.Drain()
	if l.Len() != 0 {
		t.Fatalf("log not empty after drain: %d entries", l.Len())
	}
	if n := l.Drain(); n != 0 {
		t.Fatalf("second drain executed %d compensations", n)
	}
}

func TestDrainContinuesPastFailures(t *testing.T) {
	l := New()
	var ran []string
	l.Push("first", func() error {
		ran = append(ran, "first")
		return nil
	})
	l.Push("failing", func() error {
		ran = append(ran, "failing")
		return errors.New("already absent")
	})
	l.Push("last", func() error {
		ran = append(ran, "last")
		return nil
	})
	if n := l.Drain(); n != 3 {
		t.Fatalf("expected all 3 compensations executed, got %d", n)
	}
	if len(ran) != 3 || ran[0] != "last" || ran[1] != "failing" || ran[2] != "first" {
		t.Fatalf("unexpected execution order: %v", ran)
	}
}
