package logbuffer

import (
	"testing"
	"time"
)

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for i, msg := range []string{"a", "b", "c", "d"} {
		rb.Add(LogEntry{Time: time.Unix(int64(i), 0), Level: "info", Message: msg})
	}
	got := rb.GetAll()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Message != "b" || got[2].Message != "d" {
		t.Fatalf("wrong wrap order: %+v", got)
	}
}

func TestLineRingSplitsLines(t *testing.T) {
	lr := NewLineRing(10)
	lr.Write([]byte("first li"))
	lr.Write([]byte("ne\nsecond line\r\npartial"))
	lines := lr.Tail(0)
	if len(lines) != 2 {
		t.Fatalf("expected 2 complete lines, got %v", lines)
	}
	if lines[0] != "first line" || lines[1] != "second line" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestLineRingTailLimit(t *testing.T) {
	lr := NewLineRing(2)
	lr.Write([]byte("one\ntwo\nthree\n"))
	lines := lr.Tail(5)
	if len(lines) != 2 || lines[1] != "three" {
		t.Fatalf("unexpected tail: %v", lines)
	}
}
