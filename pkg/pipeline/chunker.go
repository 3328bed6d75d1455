package pipeline

import "strings"

// ChunkSpan is one chunk of normalized source text. Start and End are rune
// offsets into the normalized text, [Start, End). OverlapPrev counts the
// runes shared with the previous chunk when a long paragraph was windowed.
type ChunkSpan struct {
	SeqIndex    int
	Content     string
	Start       int
	End         int
	OverlapPrev int
}

// Normalize canonicalizes line endings so chunk spans are stable across
// producers.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// ChunkText splits normalized text into chunks on blank-line paragraph
// boundaries. Paragraphs longer than maxChars are windowed with an overlap
// of overlapRatio*maxChars runes to preserve cross-chunk context. Every
// returned chunk satisfies 0 < length <= maxChars, and sequence indices are
// contiguous from zero.
func ChunkText(text string, maxChars int, overlapRatio float64) []ChunkSpan {
	if maxChars <= 0 {
		return nil
	}

	runes := []rune(Normalize(text))

	var chunks []ChunkSpan
	for _, p := range paragraphs(runes) {
		chunks = appendParagraph(chunks, runes, p, maxChars, overlapRatio)
	}

	for i := range chunks {
		chunks[i].SeqIndex = i
	}
	return chunks
}

// span is a half-open [start, end) rune range.
type span struct {
	start, end int
}

// paragraphs finds non-empty paragraph ranges separated by blank lines.
func paragraphs(runes []rune) []span {
	var spans []span
	n := len(runes)
	i := 0
	for i < n {
		// Skip the blank gap between paragraphs.
		for i < n && (runes[i] == '\n' || runes[i] == ' ' || runes[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}

		start := i
		for i < n {
			if runes[i] == '\n' && blankLineAt(runes, i) {
				break
			}
			i++
		}
		end := trimRight(runes, start, i)
		if end > start {
			spans = append(spans, span{start: start, end: end})
		}
	}
	return spans
}

// blankLineAt reports whether the newline at position i is followed by
// another newline, allowing only spaces and tabs in between.
func blankLineAt(runes []rune, i int) bool {
	j := i + 1
	for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t') {
		j++
	}
	return j < len(runes) && runes[j] == '\n'
}

// trimRight shrinks end past trailing whitespace within [start, end).
func trimRight(runes []rune, start, end int) int {
	for end > start {
		r := runes[end-1]
		if r != ' ' && r != '\t' && r != '\n' {
			break
		}
		end--
	}
	return end
}

// appendParagraph emits one chunk for a short paragraph, or overlapping
// windows for a long one.
func appendParagraph(chunks []ChunkSpan, runes []rune, p span, maxChars int, overlapRatio float64) []ChunkSpan {
	length := p.end - p.start
	if length <= maxChars {
		return append(chunks, ChunkSpan{
			Content: string(runes[p.start:p.end]),
			Start:   p.start,
			End:     p.end,
		})
	}

	overlap := int(overlapRatio * float64(maxChars))
	if overlap >= maxChars {
		overlap = maxChars - 1
	}
	step := maxChars - overlap

	for start := p.start; start < p.end; start += step {
		end := start + maxChars
		if end > p.end {
			end = p.end
		}

		prev := 0
		if start > p.start {
			prev = overlap
		}
		chunks = append(chunks, ChunkSpan{
			Content:     string(runes[start:end]),
			Start:       start,
			End:         end,
			OverlapPrev: prev,
		})

		if end == p.end {
			break
		}
	}
	return chunks
}
