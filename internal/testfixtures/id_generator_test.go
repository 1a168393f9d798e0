package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("slot")

	first := gen.Next()
	second := gen.Next()

	if first != "slot-1" || second != "slot-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("project")
	_ = gen.Next()
	gen.SetCounter(0)
	gen.SetPrefix("p")

	if next := gen.Next(); next != "p-1" {
		t.Fatalf("expected p-1 after reset, got %q", next)
	}
}

func TestUUIDGeneratorYieldsUniqueIDs(t *testing.T) {
	gen := UUIDGenerator()

	first := gen()
	second := gen()

	if first == "" || second == "" {
		t.Fatal("expected non-empty identifiers")
	}
	if first == second {
		t.Fatalf("expected unique identifiers, got %q twice", first)
	}
}
