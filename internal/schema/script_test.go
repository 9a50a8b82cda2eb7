// internal/schema/script_test.go
package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/PaperCastMCP/internal/models"
)

func validScript() *models.PodcastScript {
	return &models.PodcastScript{
		Title:                 "Attention Is All You Need",
		PaperID:               "1706.03762",
		TargetDurationMinutes: 5,
		Components: []models.ScriptComponent{
			{ComponentType: "Headline", Content: "Welcome to this deep dive.", Position: 0},
			{ComponentType: "Text", Content: "Today we look at the Transformer.", Position: 1},
			{ComponentType: "Headline", Content: "Why attention matters.", Position: 2},
			{ComponentType: "Text", Content: "Self-attention replaces recurrence.", Position: 3},
		},
	}
}

func TestValidate_AcceptsValidScript(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	validated, violations := s.Validate(validScript())
	require.Empty(t, violations)
	require.NotNil(t, validated)
	assert.Len(t, validated.Components, 4)
}

func TestValidate_SortsComponentsByPosition(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	script := validScript()
	// 打乱顺序，排序是校验通过后唯一允许的变更
	script.Components[0], script.Components[3] = script.Components[3], script.Components[0]
	script.Components[1], script.Components[2] = script.Components[2], script.Components[1]

	validated, violations := s.Validate(script)
	require.Empty(t, violations)
	for i, comp := range validated.Components {
		assert.Equal(t, i, comp.Position)
	}
	assert.Equal(t, models.ComponentHeadline, validated.Components[0].Kind())
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	script := validScript()
	script.Components[0], script.Components[3] = script.Components[3], script.Components[0]

	_, violations := s.Validate(script)
	require.Empty(t, violations)
	assert.Equal(t, 3, script.Components[0].Position, "输入脚本不应被原地排序")
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	script := &models.PodcastScript{
		Title:                 "",
		PaperID:               "9999.00001",
		TargetDurationMinutes: 42,
		Components: []models.ScriptComponent{
			{ComponentType: "Text", Content: "starts wrong", Position: 0},
			{ComponentType: "Banner", Content: "", Position: 2},
		},
	}

	_, violations := s.Validate(script)
	require.NotEmpty(t, violations)

	joined := violations.Error()
	assert.Contains(t, joined, "non-empty title")
	assert.Contains(t, joined, "The paper id is 1706.03762, you wrote a wrong one, correct it everywhere")
	assert.Contains(t, joined, "target_duration_minutes must be between 0 and 6")
	assert.Contains(t, joined, "Component positions must be consecutive integers starting from 0")
	assert.Contains(t, joined, "must start with a Headline")
	assert.Contains(t, joined, "Banner is not a valid component_type")
	assert.Contains(t, joined, "has empty content")
}

func TestValidate_PaperIDSentinelSkipsCheck(t *testing.T) {
	s := NewScriptSchema(models.PaperIDSentinel, 0, 6)

	script := validScript()
	script.PaperID = "whatever-the-model-wrote"

	_, violations := s.Validate(script)
	assert.Empty(t, violations)
}

func TestValidate_RejectsConsecutiveHeadlines(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	script := validScript()
	script.Components = []models.ScriptComponent{
		{ComponentType: "Headline", Content: "First headline.", Position: 0},
		{ComponentType: "Headline", Content: "Second headline.", Position: 1},
	}

	_, violations := s.Validate(script)
	require.Len(t, violations, 1)
	assert.Equal(t, "Consecutive Headline components are not allowed", violations[0].Message)
}

func TestValidate_AllowsConsecutiveText(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	script := validScript()
	script.Components = []models.ScriptComponent{
		{ComponentType: "Headline", Content: "Intro.", Position: 0},
		{ComponentType: "Text", Content: "First paragraph.", Position: 1},
		{ComponentType: "Text", Content: "Second paragraph.", Position: 2},
	}

	_, violations := s.Validate(script)
	assert.Empty(t, violations)
}

func TestValidate_EmptyComponents(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	script := validScript()
	script.Components = nil

	_, violations := s.Validate(script)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "at least one component")
}

func TestValidate_NonConsecutivePositions(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	script := validScript()
	script.Components = []models.ScriptComponent{
		{ComponentType: "Headline", Content: "Intro.", Position: 0},
		{ComponentType: "Text", Content: "Body.", Position: 2},
	}

	_, violations := s.Validate(script)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "consecutive integers starting from 0")
}

func TestValidate_DurationBoundsInclusive(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	script := validScript()
	script.TargetDurationMinutes = 6
	_, violations := s.Validate(script)
	assert.Empty(t, violations)

	script.TargetDurationMinutes = 0
	_, violations = s.Validate(script)
	assert.Empty(t, violations)

	script.TargetDurationMinutes = 6.01
	_, violations = s.Validate(script)
	assert.NotEmpty(t, violations)
}

func TestValidate_NilCandidate(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	validated, violations := s.Validate(nil)
	assert.Nil(t, validated)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "missing")
}

func TestJSONSchema_EmbedsConstraints(t *testing.T) {
	s := NewScriptSchema("1706.03762", 0, 6)

	raw, err := s.JSONSchema()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	props, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok, "schema must declare properties inline")

	for _, field := range []string{"title", "paper_id", "target_duration_minutes", "components"} {
		assert.Contains(t, props, field)
	}

	duration, ok := props["target_duration_minutes"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 0, duration["minimum"])
	assert.EqualValues(t, 6, duration["maximum"])
}

func TestJSONSchema_SentinelOmitsPaperIDHint(t *testing.T) {
	withID, err := NewScriptSchema("1706.03762", 0, 6).JSONSchema()
	require.NoError(t, err)
	sentinel, err := NewScriptSchema(models.PaperIDSentinel, 0, 6).JSONSchema()
	require.NoError(t, err)

	assert.Contains(t, string(withID), "1706.03762")
	assert.NotContains(t, string(sentinel), "1706.03762")
}
