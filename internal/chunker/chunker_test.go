package chunker

import (
	"strings"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	s := New()
	if got := s.Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
}

func TestSplit_SingleChunk(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(10))
	text := "short document"

	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("chunk text = %q, want %q", chunks[0].Text, text)
	}
	if chunks[0].Index != 0 {
		t.Errorf("chunk index = %d, want 0", chunks[0].Index)
	}
}

func TestSplit_OverlapAndCoverage(t *testing.T) {
	s := New(WithChunkSize(10), WithOverlap(3))
	text := "abcdefghijklmnopqrstuvwxyz"

	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	// Every chunk except possibly the last has the full window size.
	for i, c := range chunks[:len(chunks)-1] {
		if len(c.Text) != 10 {
			t.Errorf("chunk %d size = %d, want 10", i, len(c.Text))
		}
	}

	// Indices are sequential.
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}

	// Consecutive chunks share exactly the overlap.
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].Text, chunks[i].Text
		if !strings.HasSuffix(prev, cur[:min(3, len(cur))]) {
			t.Errorf("chunk %d does not overlap its predecessor: %q then %q", i, prev, cur)
		}
	}

	// The last byte of the input is covered.
	lastChunk := chunks[len(chunks)-1].Text
	if !strings.HasSuffix(text, lastChunk) {
		t.Errorf("last chunk %q is not a suffix of the input", lastChunk)
	}
}

func TestSplit_ChunkCount(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		textLen   int
		want      int
	}{
		{name: "exact single window", chunkSize: 10, overlap: 0, textLen: 10, want: 1},
		{name: "no overlap even split", chunkSize: 10, overlap: 0, textLen: 30, want: 3},
		{name: "no overlap with remainder", chunkSize: 10, overlap: 0, textLen: 31, want: 4},
		{name: "overlap increases count", chunkSize: 10, overlap: 5, textLen: 30, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(WithChunkSize(tt.chunkSize), WithOverlap(tt.overlap))
			chunks := s.Split(strings.Repeat("x", tt.textLen))
			if len(chunks) != tt.want {
				t.Errorf("got %d chunks, want %d", len(chunks), tt.want)
			}
		})
	}
}

func TestSplit_TerminatesWhenOverlapAtLeastChunkSize(t *testing.T) {
	// advance = chunkSize - overlap would be <= 0; the minimum advance of 1
	// must keep the cursor moving.
	s := New(WithChunkSize(5), WithOverlap(5))
	text := strings.Repeat("y", 20)

	chunks := s.Split(text)
	want := len(text) - 5 + 1 // cursor moves one byte per step until the window reaches the end
	if len(chunks) != want {
		t.Errorf("got %d chunks, want %d", len(chunks), want)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Index <= chunks[i-1].Index {
			t.Fatalf("indices not increasing at %d", i)
		}
	}
}

func TestSplit_InvalidOptionsIgnored(t *testing.T) {
	s := New(WithChunkSize(0), WithOverlap(-1))
	if s.chunkSize != DefaultChunkSize {
		t.Errorf("chunkSize = %d, want default %d", s.chunkSize, DefaultChunkSize)
	}
	if s.overlap != DefaultOverlap {
		t.Errorf("overlap = %d, want default %d", s.overlap, DefaultOverlap)
	}
}

func TestSplit_SentenceSnap(t *testing.T) {
	s := New(WithChunkSize(30), WithOverlap(0), WithSentenceSnap())
	text := "First sentence here. Second sentence is longer. Third one."

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	// The first window covers 30 bytes; the last sentence ending inside it
	// is after "here." at byte 19, which is in the window's second half.
	if !strings.HasSuffix(chunks[0].Text, ".") {
		t.Errorf("first chunk %q does not end at a sentence boundary", chunks[0].Text)
	}
}

func TestSplit_SentenceSnapIgnoresEarlyBoundary(t *testing.T) {
	s := New(WithChunkSize(40), WithOverlap(0), WithSentenceSnap())
	// The only sentence ending falls in the first half of the window, so
	// the splitter keeps the fixed boundary.
	text := "Short. " + strings.Repeat("x", 100)

	chunks := s.Split(text)
	if len(chunks[0].Text) != 40 {
		t.Errorf("first chunk size = %d, want 40", len(chunks[0].Text))
	}
}
