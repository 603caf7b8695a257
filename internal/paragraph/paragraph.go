// Package paragraph splits documents into hash-identified paragraphs and
// caches per-paragraph analysis results so that re-analysis after a small
// edit only pays for the paragraphs that actually changed.
package paragraph

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var blankLineRe = regexp.MustCompile(`\n\s*\n`)

// Paragraph is a contiguous slice of the document between blank-line
// boundaries. Identity across analyses is by content hash, not position;
// Start and End record where the trimmed text sat in the source document.
type Paragraph struct {
	Index int
	Text  string
	Hash  string
	Start int
	End   int
}

// Contains reports whether the byte offset falls inside this paragraph's
// span in the source document.
func (p Paragraph) Contains(offset int) bool {
	return offset >= p.Start && offset < p.End
}

// Split breaks content into paragraphs at blank-line boundaries. Whitespace
//-only segments are dropped. Paragraph text is trimmed so that hashing is
// stable under leading/trailing whitespace churn.
func Split(content string) []Paragraph {
	separators := blankLineRe.FindAllStringIndex(content, -1)
	var paragraphs []Paragraph
	segStart := 0
	for i := 0; i <= len(separators); i++ {
		segEnd := len(content)
		if i < len(separators) {
			segEnd = separators[i][0]
		}
		seg := content[segStart:segEnd]
		text := strings.TrimSpace(seg)
		if text != "" {
			// TrimSpace only strips from the edges, so the trimmed text is
			// a contiguous slice of the segment.
			start := segStart + len(seg) - len(strings.TrimLeft(seg, " \t\r\n\v\f"))
			paragraphs = append(paragraphs, Paragraph{
				Index: len(paragraphs),
				Text:  text,
				Hash:  Hash(text),
				Start: start,
				End:   start + len(text),
			})
		}
		if i < len(separators) {
			segStart = separators[i][1]
		}
	}
	return paragraphs
}

// Hash returns the content-derived identity of a paragraph.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}

// Partition classifies current paragraphs against the previous analysis:
// a paragraph whose hash appeared last time is unchanged, anything else is
// changed. Position is deliberately ignored — a moved paragraph is still
// the same paragraph.
func Partition(previous, current []Paragraph) (changed, unchanged []Paragraph) {
	previousHashes := make(map[string]struct{}, len(previous))
	for _, p := range previous {
		previousHashes[p.Hash] = struct{}{}
	}
	for _, p := range current {
		if _, ok := previousHashes[p.Hash]; ok {
			unchanged = append(unchanged, p)
		} else {
			changed = append(changed, p)
		}
	}
	return changed, unchanged
}
