// internal/services/observer.go
package services

import (
	"github.com/Corphon/PaperCastMCP/internal/llm"
	"github.com/Corphon/PaperCastMCP/internal/utils"
)

// 日志中请求和响应摘录的最大长度
const diagnosticExcerptLimit = 1000

// AttemptDiagnostic 一次生成尝试的诊断记录，仅存在于内存中供日志使用
type AttemptDiagnostic struct {
	Attempt     int           `json:"attempt"`
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages,omitempty"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	RawResponse string        `json:"raw_response,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// UserPromptExcerpt 返回最后一条用户消息的有界摘录
func (d *AttemptDiagnostic) UserPromptExcerpt() string {
	var prompt string
	for _, msg := range d.Messages {
		if msg.Role == llm.RoleUser {
			prompt = msg.Content
		}
	}
	return excerpt(prompt)
}

// RawResponseExcerpt 返回原始响应的有界摘录
func (d *AttemptDiagnostic) RawResponseExcerpt() string {
	return excerpt(d.RawResponse)
}

func excerpt(s string) string {
	if len(s) > diagnosticExcerptLimit {
		return s[:diagnosticExcerptLimit]
	}
	return s
}

// GenerationObserver 生成编排的观测接口。
// 编排器把它作为显式依赖接收，按尝试的生命周期回调。
type GenerationObserver interface {
	// 每次尝试发起前，携带完整请求参数
	OnAttemptStart(attempt int, req llm.CompletionRequest)

	// 每次尝试拿到后端响应后（传输失败时不回调）
	OnAttemptResponse(attempt int, resp *llm.CompletionResponse)

	// 候选解析失败或未通过结构校验时
	OnValidationError(attempt int, diag *AttemptDiagnostic)

	// 传输层失败时
	OnTransportError(attempt int, diag *AttemptDiagnostic)

	// 重试额度耗尽，携带最后一次尝试的诊断
	OnExhausted(diag *AttemptDiagnostic)
}

// NopObserver 不做任何事的观测器
type NopObserver struct{}

func (NopObserver) OnAttemptStart(int, llm.CompletionRequest)      {}
func (NopObserver) OnAttemptResponse(int, *llm.CompletionResponse) {}
func (NopObserver) OnValidationError(int, *AttemptDiagnostic)      {}
func (NopObserver) OnTransportError(int, *AttemptDiagnostic)       {}
func (NopObserver) OnExhausted(*AttemptDiagnostic)                 {}

// LoggingObserver 把每次尝试的关键信息写入结构化日志
type LoggingObserver struct {
	Tag    string
	logger *utils.Logger
}

// NewLoggingObserver 创建日志观测器
func NewLoggingObserver(tag string) *LoggingObserver {
	return &LoggingObserver{
		Tag:    tag,
		logger: utils.GetLogger(),
	}
}

func (o *LoggingObserver) OnAttemptStart(attempt int, req llm.CompletionRequest) {
	o.logger.Info("generation attempt started", map[string]interface{}{
		"tag":         o.Tag,
		"attempt":     attempt,
		"model":       req.Model,
		"messages":    len(req.Messages),
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	})
}

func (o *LoggingObserver) OnAttemptResponse(attempt int, resp *llm.CompletionResponse) {
	o.logger.Info("generation attempt response received", map[string]interface{}{
		"tag":           o.Tag,
		"attempt":       attempt,
		"model":         resp.ModelName,
		"provider":      resp.ProviderName,
		"finish_reason": resp.FinishReason,
		"tokens_used":   resp.TokensUsed,
	})
}

func (o *LoggingObserver) OnValidationError(attempt int, diag *AttemptDiagnostic) {
	o.logger.Error("generation attempt failed validation", map[string]interface{}{
		"tag":            o.Tag,
		"attempt":        attempt,
		"error":          diag.Error,
		"model":          diag.Model,
		"prompt_excerpt": diag.UserPromptExcerpt(),
		"raw_excerpt":    diag.RawResponseExcerpt(),
	})
}

func (o *LoggingObserver) OnTransportError(attempt int, diag *AttemptDiagnostic) {
	o.logger.Error("generation attempt transport failure", map[string]interface{}{
		"tag":     o.Tag,
		"attempt": attempt,
		"error":   diag.Error,
		"model":   diag.Model,
	})
}

func (o *LoggingObserver) OnExhausted(diag *AttemptDiagnostic) {
	o.logger.Error("last generation attempt failed", map[string]interface{}{
		"tag":     o.Tag,
		"attempt": diag.Attempt,
		"error":   diag.Error,
	})
}
