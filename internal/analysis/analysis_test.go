package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revisely/revisely/internal/suggestion"
)

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    time.Duration
		ok      bool
	}{
		{name: "seconds", message: "Rate limit reached. Please try again in 20s.", want: 20 * time.Second, ok: true},
		{name: "spelled out seconds", message: "rate limited, retry after 5 seconds", want: 5 * time.Second, ok: true},
		{name: "milliseconds", message: "please try again in 750ms", want: 750 * time.Millisecond, ok: true},
		{name: "minutes", message: "quota exhausted, wait 2 minutes", want: 2 * time.Minute, ok: true},
		{name: "fractional", message: "try again in 1.5s", want: 1500 * time.Millisecond, ok: true},
		{name: "no hint", message: "too many requests", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseRetryAfter(tc.message)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	body := `{"suggestions":[{"category":"grammar","severity":"critical","originalText":"me and him","replacement":"he and I","highlightRange":{"start":4,"end":14},"confidence":0.9},{"type":"tone","severity":"success","description":"Strong opening."}],"overallFeedback":"Solid draft."}`

	result, err := parseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "Solid draft.", result.OverallFeedback)
	require.Len(t, result.Suggestions, 2)

	first := result.Suggestions[0]
	assert.NotEmpty(t, first.ID, "missing ids are backfilled at ingestion")
	assert.Equal(t, suggestion.SeverityCritical, first.Severity)
	assert.Equal(t, suggestion.KindObjective, first.Kind)
	require.NotNil(t, first.HighlightRange)
	assert.Equal(t, 4, first.HighlightRange.Start)

	second := result.Suggestions[1]
	assert.Equal(t, "tone", second.Category, "legacy type field maps to category")
	assert.Equal(t, suggestion.KindStrategic, second.Kind)
	assert.Nil(t, second.HighlightRange)
	assert.False(t, second.Actionable())
}

func TestParseResponseCodeFence(t *testing.T) {
	t.Parallel()

	body := "```json\n{\"suggestions\":[],\"overallFeedback\":\"ok\"}\n```"
	result, err := parseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.OverallFeedback)
}

func TestParseResponseMalformed(t *testing.T) {
	t.Parallel()

	_, err := parseResponse("this is not json")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
}
