package textmatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateExactWithContext(t *testing.T) {
	t.Parallel()

	doc := "I am very passionate about this program and its goals."
	m := Locate(doc, Anchor{
		OriginalText:  "very passionate",
		ContextBefore: "I am ",
		ContextAfter:  " about",
	})

	require.NotNil(t, m)
	assert.Equal(t, ConfidenceExact, m.Confidence)
	assert.Equal(t, "very passionate", doc[m.Start:m.End])
	assert.Equal(t, 5, m.Start)
}

func TestLocateRoundTrip(t *testing.T) {
	t.Parallel()

	// For any substring with non-empty surrounding context, Locate must
	// return exactly that substring's span with exact confidence.
	doc := "The essay opens with a personal anecdote. It then pivots to research goals. A closing paragraph ties both together."
	const k = 6
	for _, target := range []string{"personal anecdote", "research goals", "closing paragraph"} {
		i := strings.Index(doc, target)
		require.GreaterOrEqual(t, i, k)
		j := i + len(target)
		require.LessOrEqual(t, j+k, len(doc))

		m := Locate(doc, Anchor{
			OriginalText:  target,
			ContextBefore: doc[i-k : i],
			ContextAfter:  doc[j : j+k],
		})
		require.NotNil(t, m, "target %q", target)
		assert.Equal(t, i, m.Start)
		assert.Equal(t, j, m.End)
		assert.Equal(t, ConfidenceExact, m.Confidence)
	}
}

func TestLocateBareMatchWithoutContext(t *testing.T) {
	t.Parallel()

	doc := "alpha beta gamma"
	m := Locate(doc, Anchor{OriginalText: "beta"})
	require.NotNil(t, m)
	assert.Equal(t, ConfidenceExact, m.Confidence)
	assert.Equal(t, 6, m.Start)
}

func TestLocateRepeatedOccurrenceDisambiguatedByContext(t *testing.T) {
	t.Parallel()

	doc := "good morning and good night"
	m := Locate(doc, Anchor{
		OriginalText:  "good",
		ContextAfter:  " night",
		ContextBefore: "and ",
	})
	require.NotNil(t, m)
	assert.Equal(t, "good night", doc[m.Start:m.End+6])
	assert.Equal(t, ConfidenceExact, m.Confidence)
}

func TestLocateFirstOccurrenceWhenAmbiguous(t *testing.T) {
	t.Parallel()

	// No context: the first occurrence wins, deterministically.
	doc := "repeat repeat repeat"
	m := Locate(doc, Anchor{OriginalText: "repeat"})
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Start)
}

func TestLocateCaseInsensitive(t *testing.T) {
	t.Parallel()

	doc := "My Personal Statement covers three themes."
	m := Locate(doc, Anchor{OriginalText: "personal statement"})
	require.NotNil(t, m)
	assert.Equal(t, ConfidenceFuzzy, m.Confidence)
	assert.Equal(t, "Personal Statement", doc[m.Start:m.End])
}

func TestLocateFuzzyAfterSmallEdit(t *testing.T) {
	t.Parallel()

	// The document drifted slightly since analysis: "about" became "abuot".
	doc := "I care deeply abuot this field of study."
	m := Locate(doc, Anchor{OriginalText: "deeply about this"})
	require.NotNil(t, m)
	assert.Equal(t, ConfidenceFuzzy, m.Confidence)
	assert.Equal(t, strings.Index(doc, "deeply"), m.Start)
}

func TestLocatePositionLost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		doc    string
		anchor Anchor
	}{
		{
			name:   "target deleted entirely",
			doc:    "Nothing here resembles the target at all.",
			anchor: Anchor{OriginalText: "quantum entanglement seminar"},
		},
		{
			name:   "empty original text",
			doc:    "some document",
			anchor: Anchor{OriginalText: "", ContextBefore: "some", ContextAfter: "document"},
		},
		{
			name:   "empty document",
			doc:    "",
			anchor: Anchor{OriginalText: "anything"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Nil(t, Locate(tc.doc, tc.anchor))
		})
	}
}
