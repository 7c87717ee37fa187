package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anime-shed/comicvault-grader/internal/grading"
)

func TestValidatePayload(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		valid   bool
	}{
		{name: "numbers only", payload: `{"corners":8,"spine":7,"surface":9,"centering":6,"color":8}`, valid: true},
		{name: "full", payload: `{"corners":8,"spine":7,"surface":9,"centering":6,"color":8,"restoration_suspected":true,"pressing_benefit":"none","page_color":"tan","notes":"ok"}`, valid: true},
		{name: "out of range numbers pass", payload: `{"corners":80,"spine":-7,"surface":9,"centering":6,"color":8}`, valid: true},
		{name: "array", payload: `[8,7,9,6,8]`},
		{name: "null restoration", payload: `{"corners":8,"spine":7,"surface":9,"centering":6,"color":8,"restoration_suspected":null}`},
		{name: "truncated", payload: `{"corners":8,"spine":7`},
		{name: "empty", payload: ``},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayload([]byte(tc.payload))
			if tc.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, grading.ErrMalformedOpinion)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	rq := require.New(t)

	rq.Equal(`{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	rq.Equal(`{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	rq.Equal(`{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}
