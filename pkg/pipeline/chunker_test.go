package pipeline

import (
	"strings"
	"testing"
)

func TestChunkText_ParagraphBoundaries(t *testing.T) {
	text := "first paragraph here\n\nsecond paragraph\nstill second\n\nthird"
	chunks := ChunkText(text, 1200, 0.15)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "first paragraph here" {
		t.Errorf("chunk 0 = %q", chunks[0].Content)
	}
	if chunks[1].Content != "second paragraph\nstill second" {
		t.Errorf("chunk 1 = %q", chunks[1].Content)
	}
	if chunks[2].Content != "third" {
		t.Errorf("chunk 2 = %q", chunks[2].Content)
	}
}

func TestChunkText_ContiguousZeroBasedIndices(t *testing.T) {
	text := strings.Repeat("short para\n\n", 5) + strings.Repeat("x", 5000)
	chunks := ChunkText(text, 1200, 0.15)

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, c := range chunks {
		if c.SeqIndex != i {
			t.Fatalf("chunk %d has seq index %d", i, c.SeqIndex)
		}
	}
}

func TestChunkText_LengthInvariant(t *testing.T) {
	const max = 100
	texts := []string{
		"tiny",
		strings.Repeat("a", max),
		strings.Repeat("b", max+1),
		strings.Repeat("c", 10*max),
		"para one\n\n" + strings.Repeat("d", 3*max) + "\n\npara three",
	}

	for _, text := range texts {
		for _, c := range ChunkText(text, max, 0.15) {
			n := len([]rune(c.Content))
			if n == 0 || n > max {
				t.Errorf("chunk length %d violates 0 < len <= %d", n, max)
			}
		}
	}
}

func TestChunkText_WindowOverlap(t *testing.T) {
	const max = 100
	text := strings.Repeat("e", 250)
	chunks := ChunkText(text, max, 0.2)

	if len(chunks) < 2 {
		t.Fatalf("expected windowed chunks, got %d", len(chunks))
	}
	if chunks[0].OverlapPrev != 0 {
		t.Errorf("first chunk overlap = %d, want 0", chunks[0].OverlapPrev)
	}
	overlap := int(0.2 * max)
	for _, c := range chunks[1:] {
		if c.OverlapPrev != overlap {
			t.Errorf("chunk %d overlap = %d, want %d", c.SeqIndex, c.OverlapPrev, overlap)
		}
	}

	// Adjacent windows share exactly the overlap region.
	if chunks[1].Start != chunks[0].End-overlap {
		t.Errorf("window 1 starts at %d, want %d", chunks[1].Start, chunks[0].End-overlap)
	}
}

func TestChunkText_SpansIndexNormalizedText(t *testing.T) {
	text := "alpha\r\nbeta\r\n\r\ngamma"
	norm := []rune(Normalize(text))
	chunks := ChunkText(text, 1200, 0.15)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if got := string(norm[c.Start:c.End]); got != c.Content {
			t.Errorf("span [%d,%d) = %q, content = %q", c.Start, c.End, got, c.Content)
		}
	}
}

func TestChunkText_EmptyAndWhitespaceInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\n", "\t\n \n"} {
		if chunks := ChunkText(text, 1200, 0.15); len(chunks) != 0 {
			t.Errorf("ChunkText(%q) = %d chunks, want 0", text, len(chunks))
		}
	}
}

func TestChunkText_MultibyteSafe(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 50)
	chunks := ChunkText(text, 40, 0.15)

	for _, c := range chunks {
		if !strings.HasPrefix(text, "h") {
			t.Fatal("unexpected input")
		}
		for _, r := range c.Content {
			if r == '�' {
				t.Fatalf("chunk %d contains a split rune", c.SeqIndex)
			}
		}
	}
}
