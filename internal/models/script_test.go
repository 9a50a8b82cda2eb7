// internal/models/script_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstruct(t *testing.T) {
	script := &PodcastScript{
		Title:   "Attention Is All You Need",
		PaperID: "1706.03762",
		Components: []ScriptComponent{
			{ComponentType: "Headline", Content: "Understanding GPT-4", Position: 0},
			{ComponentType: "Text", Content: "Welcome to this review!", Position: 1},
		},
	}

	expected := "\\Headline: Understanding GPT-4\n\\Text: Welcome to this review!"
	assert.Equal(t, expected, script.Reconstruct())
}

func TestReconstruct_EmptyScript(t *testing.T) {
	script := &PodcastScript{}
	assert.Equal(t, "", script.Reconstruct())
}

func TestReconstruct_TrimsComponentType(t *testing.T) {
	script := &PodcastScript{
		Components: []ScriptComponent{
			{ComponentType: " Headline ", Content: "Spaced out", Position: 0},
		},
	}
	assert.Equal(t, "\\Headline: Spaced out", script.Reconstruct())
}

func TestParseScriptText_RoundTrip(t *testing.T) {
	script := &PodcastScript{
		Components: []ScriptComponent{
			{ComponentType: "Headline", Content: "Intro", Position: 0},
			{ComponentType: "Text", Content: "Body with: colon inside", Position: 1},
			{ComponentType: "Headline", Content: "Next section", Position: 2},
		},
	}

	parsed, err := ParseScriptText(script.Reconstruct())
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	for i, comp := range parsed {
		assert.Equal(t, script.Components[i].ComponentType, comp.ComponentType)
		assert.Equal(t, script.Components[i].Content, comp.Content)
		assert.Equal(t, i, comp.Position)
	}
}

func TestParseScriptText_Errors(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"empty input", "   ", "empty"},
		{"missing marker", "Headline: no backslash", "missing component marker"},
		{"missing separator", "\\Headline no separator", "missing ': ' separator"},
		{"unknown kind", "\\Banner: what is this", "unknown component type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScriptText(tc.text)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSortComponents_Stable(t *testing.T) {
	script := &PodcastScript{
		Components: []ScriptComponent{
			{ComponentType: "Text", Content: "c", Position: 2},
			{ComponentType: "Headline", Content: "a", Position: 0},
			{ComponentType: "Text", Content: "b", Position: 1},
		},
	}

	script.SortComponents()
	assert.Equal(t, "a", script.Components[0].Content)
	assert.Equal(t, "b", script.Components[1].Content)
	assert.Equal(t, "c", script.Components[2].Content)
}

func TestIsValidComponentType(t *testing.T) {
	assert.True(t, IsValidComponentType("Headline"))
	assert.True(t, IsValidComponentType("Text"))
	assert.True(t, IsValidComponentType(" Text "))
	assert.False(t, IsValidComponentType("text"))
	assert.False(t, IsValidComponentType("Figure"))
	assert.False(t, IsValidComponentType(""))
}
