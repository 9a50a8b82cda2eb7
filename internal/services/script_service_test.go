// internal/services/script_service_test.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/PaperCastMCP/internal/config"
	apperrors "github.com/Corphon/PaperCastMCP/internal/errors"
	"github.com/Corphon/PaperCastMCP/internal/llm"
	"github.com/Corphon/PaperCastMCP/internal/models"
)

// scriptedProvider 按预设序列逐次返回响应或错误
type scriptedProvider struct {
	responses []string
	errs      []error
	calls     int
	requests  []llm.CompletionRequest
}

func (p *scriptedProvider) Initialize(map[string]string) error         { return nil }
func (p *scriptedProvider) GetName() string                            { return "scripted" }
func (p *scriptedProvider) GetSupportedModels() []string               { return []string{"test-model"} }
func (p *scriptedProvider) FetchAvailableModels(context.Context) error { return nil }
func (p *scriptedProvider) SetCustomModels([]string)                   {}

func (p *scriptedProvider) CompleteText(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	idx := p.calls
	p.calls++
	p.requests = append(p.requests, req)

	if idx < len(p.errs) && p.errs[idx] != nil {
		return nil, p.errs[idx]
	}
	if idx >= len(p.responses) {
		return nil, errors.New("no scripted response left")
	}
	return &llm.CompletionResponse{
		Text:      p.responses[idx],
		ModelName: "test-model",
	}, nil
}

func validScriptJSON(t *testing.T, paperID string) string {
	t.Helper()
	script := models.PodcastScript{
		Title:                 "Attention Is All You Need",
		PaperID:               paperID,
		TargetDurationMinutes: 5,
		Components: []models.ScriptComponent{
			{ComponentType: "Headline", Content: "Welcome.", Position: 0},
			{ComponentType: "Text", Content: "Let us dig in.", Position: 1},
		},
	}
	data, err := json.Marshal(script)
	require.NoError(t, err)
	return string(data)
}

func testGenConfig(maxRetries int) config.GenerationConfig {
	return config.GenerationConfig{
		MaxRetries:         maxRetries,
		Temperature:        0.1,
		MaxOutputTokens:    8000,
		MinDurationMinutes: 0,
		MaxDurationMinutes: 6,
	}
}

func TestProcessScript_Success(t *testing.T) {
	provider := &scriptedProvider{responses: []string{validScriptJSON(t, "1706.03762")}}
	svc := NewScriptService(provider, "test-model", testGenConfig(2), nil, nil)

	text, err := svc.ProcessScript(context.Background(), "paper content ![](fig.png)", "1706.03762")
	require.NoError(t, err)

	assert.Equal(t, "\\Headline: Welcome.\n\\Text: Let us dig in.", text)
	assert.Equal(t, 1, provider.calls)

	// 源文档的图片引用在送入生成之前已被规整
	req := provider.requests[0]
	userMsg := req.Messages[len(req.Messages)-1].Content
	assert.Contains(t, userMsg, "https://arxiv.org/html/1706.03762/fig.png")
	assert.Contains(t, userMsg, "its paper_id is 1706.03762")

	require.NotNil(t, req.ResponseSchema)
	assert.Equal(t, "podcast_script", req.ResponseSchema.Name)
	assert.True(t, req.ResponseSchema.Strict)
}

func TestProcessScript_EmptyPaper(t *testing.T) {
	svc := NewScriptService(&scriptedProvider{}, "test-model", testGenConfig(2), nil, nil)

	_, err := svc.ProcessScript(context.Background(), "   ", "1706.03762")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestProcessScript_NilProvider(t *testing.T) {
	svc := NewScriptService(nil, "test-model", testGenConfig(2), nil, nil)

	_, err := svc.ProcessScript(context.Background(), "content", "1706.03762")
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeConfig, appErr.Type)
}

func TestProcessScript_SentinelSkipsLinkRewrite(t *testing.T) {
	provider := &scriptedProvider{responses: []string{validScriptJSON(t, "whatever")}}
	svc := NewScriptService(provider, "test-model", testGenConfig(2), nil, nil)

	_, err := svc.ProcessScript(context.Background(), "content ![](fig.png)", "")
	require.NoError(t, err)

	userMsg := provider.requests[0].Messages[1].Content
	assert.Contains(t, userMsg, "![](fig.png)", "占位符模式不应改写链接")
	assert.Contains(t, userMsg, "its paper_id is paper_id")
}

func TestGenerate_RepairsAfterValidationFailure(t *testing.T) {
	bad := `{"title":"","paper_id":"1706.03762","target_duration_minutes":5,"components":[]}`
	good := validScriptJSON(t, "1706.03762")
	provider := &scriptedProvider{responses: []string{bad, good}}
	svc := NewScriptService(provider, "test-model", testGenConfig(2), nil, nil)

	script, err := svc.Generate(context.Background(), "content", "1706.03762")
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", script.Title)
	assert.Equal(t, 2, provider.calls)

	// 第二次请求必须带上失败的原始输出和完整违规清单
	second := provider.requests[1]
	require.Len(t, second.Messages, 4)
	assert.Equal(t, llm.RoleAssistant, second.Messages[2].Role)
	assert.Equal(t, bad, second.Messages[2].Content)
	assert.Equal(t, llm.RoleUser, second.Messages[3].Role)
	assert.Contains(t, second.Messages[3].Content, "non-empty title")
	assert.Contains(t, second.Messages[3].Content, "at least one component")
}

func TestGenerate_RepairsAfterParseFailure(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"not json at all", validScriptJSON(t, "1706.03762")}}
	svc := NewScriptService(provider, "test-model", testGenConfig(2), nil, nil)

	_, err := svc.Generate(context.Background(), "content", "1706.03762")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
	assert.Contains(t, provider.requests[1].Messages[3].Content, "not a valid JSON object")
}

func TestGenerate_AcceptsFencedJSON(t *testing.T) {
	fenced := "```json\n" + validScriptJSON(t, "1706.03762") + "\n```"
	provider := &scriptedProvider{responses: []string{fenced}}
	svc := NewScriptService(provider, "test-model", testGenConfig(2), nil, nil)

	script, err := svc.Generate(context.Background(), "content", "1706.03762")
	require.NoError(t, err)
	assert.Equal(t, "1706.03762", script.PaperID)
}

func TestGenerate_ExhaustsBudget(t *testing.T) {
	bad := `{"title":"","paper_id":"wrong","target_duration_minutes":99,"components":[]}`
	provider := &scriptedProvider{responses: []string{bad, bad, bad}}

	observer := &countingObserver{}
	svc := NewScriptService(provider, "test-model", testGenConfig(2), nil, observer)

	_, err := svc.Generate(context.Background(), "content", "1706.03762")
	require.Error(t, err)

	// 额度2：第三次尝试不会发起
	assert.Equal(t, 2, provider.calls)
	assert.True(t, apperrors.IsExhaustedError(err))

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	require.NotNil(t, genErr.Diagnostic)
	assert.Equal(t, 2, genErr.Diagnostic.Attempt)
	assert.Equal(t, bad, genErr.Diagnostic.RawResponse)
	assert.Contains(t, genErr.Diagnostic.Error, "The paper id is 1706.03762")

	assert.Equal(t, 2, observer.starts)
	assert.Equal(t, 2, observer.validationErrs)
	assert.Equal(t, 1, observer.exhausted)
}

func TestGenerate_RetriesTransportFailure(t *testing.T) {
	provider := &scriptedProvider{
		errs:      []error{&llm.APIStatusError{Provider: "scripted", StatusCode: 429, Body: "rate limited"}},
		responses: []string{"", validScriptJSON(t, "1706.03762")},
	}
	observer := &countingObserver{}
	svc := NewScriptService(provider, "test-model", testGenConfig(3), nil, observer)

	script, err := svc.Generate(context.Background(), "content", "1706.03762")
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", script.Title)
	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, 1, observer.transportErrs)
}

func TestGenerate_CancelledContext(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{errors.New("backend down"), errors.New("backend down"), errors.New("backend down")},
	}
	svc := NewScriptService(provider, "test-model", testGenConfig(3), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, "content", "1706.03762")
	require.Error(t, err)
	assert.False(t, apperrors.IsExhaustedError(err), "取消不应计为额度耗尽")
	assert.True(t, apperrors.IsTransportError(err))
}

// countingObserver 统计各生命周期事件的触发次数
type countingObserver struct {
	starts         int
	responses      int
	validationErrs int
	transportErrs  int
	exhausted      int
}

func (o *countingObserver) OnAttemptStart(int, llm.CompletionRequest)      { o.starts++ }
func (o *countingObserver) OnAttemptResponse(int, *llm.CompletionResponse) { o.responses++ }
func (o *countingObserver) OnValidationError(int, *AttemptDiagnostic)      { o.validationErrs++ }
func (o *countingObserver) OnTransportError(int, *AttemptDiagnostic)       { o.transportErrs++ }
func (o *countingObserver) OnExhausted(*AttemptDiagnostic)                 { o.exhausted++ }
