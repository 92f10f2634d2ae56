// Package chunker splits extracted page text into overlapping fixed-size
// windows, the unit of embedding and indexing.
package chunker

import "strings"

// Default window parameters. Overridable per Splitter via options.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 100
)

// Chunk is a contiguous substring of a source document plus its ordinal
// position. The text is always a verbatim substring of the input: the
// splitter never inserts or drops characters, only places boundaries.
type Chunk struct {
	Text  string
	Index int
}

// Splitter produces overlapping chunks from text.
type Splitter struct {
	chunkSize    int
	overlap      int
	sentenceSnap bool
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the target window size in bytes. Values < 1 are
// ignored.
func WithChunkSize(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithOverlap sets how many bytes consecutive windows share. Negative
// values are ignored. An overlap >= chunk size does not loop: the advance
// guard in Split forces forward progress.
func WithOverlap(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.overlap = n
		}
	}
}

// WithSentenceSnap enables pulling window boundaries back to the nearest
// sentence ending (". ", "? ", "! " or newline) so chunks avoid splitting
// mid-sentence. Off by default: the plain fixed window has a trivially
// provable termination and size bound, snapping is polish.
func WithSentenceSnap() Option {
	return func(s *Splitter) {
		s.sentenceSnap = true
	}
}

// New creates a Splitter with the default window parameters, then applies
// opts.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split chunks text into overlapping windows.
//
// A cursor starts at 0; each step takes text[cursor : cursor+chunkSize]
// (clamped to the end) and advances by chunkSize-overlap. The chunk that
// reaches the end of the text is the last one. If the advance would not
// move the cursor forward, a minimum advance of 1 guarantees termination.
// Empty input yields an empty (nil) slice.
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	var chunks []Chunk
	start := 0

	for start < len(text) {
		end := min(start+s.chunkSize, len(text))

		if s.sentenceSnap && end < len(text) {
			end = s.snapToSentence(text, start, end)
		}

		chunks = append(chunks, Chunk{
			Text:  text[start:end],
			Index: len(chunks),
		})

		if end == len(text) {
			break
		}

		advance := (end - start) - s.overlap
		if advance < 1 {
			advance = 1
		}
		start += advance
	}

	return chunks
}

// snapToSentence pulls end back to just past the last sentence ending in
// text[start:end]. A boundary in the first half of the window is ignored:
// snapping to it would produce a chunk much smaller than the target size.
// Returns end unchanged when no usable boundary exists.
func (s *Splitter) snapToSentence(text string, start, end int) int {
	window := text[start:end]

	last := -1
	for _, marker := range []string{". ", "? ", "! ", "\n"} {
		if i := strings.LastIndex(window, marker); i > last {
			last = i
		}
	}

	if last >= len(window)/2 {
		return start + last + 1
	}
	return end
}
