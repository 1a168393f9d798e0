package application

import "testing"

func TestDefaultColorIsDeterministic(t *testing.T) {
	first := DefaultColor("user-1")
	for i := 0; i < 10; i++ {
		if got := DefaultColor("user-1"); got != first {
			t.Fatalf("DefaultColor changed between calls: %s vs %s", first, got)
		}
	}
}

func TestDefaultColorComesFromPalette(t *testing.T) {
	ids := []string{"user-1", "user-2", "another", "", "明"}
	for _, id := range ids {
		color := DefaultColor(id)
		found := false
		for _, candidate := range defaultPalette {
			if candidate == color {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("DefaultColor(%q) = %s, not in palette", id, color)
		}
	}
}

func TestPaletteSize(t *testing.T) {
	if PaletteSize() != len(defaultPalette) {
		t.Fatalf("PaletteSize() = %d, want %d", PaletteSize(), len(defaultPalette))
	}
	if PaletteSize() == 0 {
		t.Fatal("palette must not be empty")
	}
}
