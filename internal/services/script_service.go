// internal/services/script_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Corphon/PaperCastMCP/internal/config"
	apperrors "github.com/Corphon/PaperCastMCP/internal/errors"
	"github.com/Corphon/PaperCastMCP/internal/llm"
	"github.com/Corphon/PaperCastMCP/internal/models"
	"github.com/Corphon/PaperCastMCP/internal/schema"
	"github.com/Corphon/PaperCastMCP/internal/utils"
)

// GenerationError 终止性的生成失败，携带最后一次尝试的诊断记录，
// 调用方不需要翻日志就能定位失败原因
type GenerationError struct {
	*apperrors.AppError
	Diagnostic *AttemptDiagnostic
}

// Unwrap 返回内嵌的AppError本身，保证errors.As能命中错误类型判定；
// 提升的Unwrap会越过AppError直接暴露底层错误
func (e *GenerationError) Unwrap() error {
	return e.AppError
}

// ScriptService 生成编排器兼流水线入口：
// 规整源文档链接 → 带重试的结构化生成 → 重建逐行脚本文本
type ScriptService struct {
	provider llm.Provider
	model    string
	genCfg   config.GenerationConfig
	linkFix  *LinkFixService
	observer GenerationObserver
	logger   *utils.Logger
}

// NewScriptService 创建脚本生成服务。observer传nil时使用无操作观测器。
func NewScriptService(provider llm.Provider, model string, genCfg config.GenerationConfig, linkFix *LinkFixService, observer GenerationObserver) *ScriptService {
	if observer == nil {
		observer = NopObserver{}
	}
	if linkFix == nil {
		linkFix = NewLinkFixService()
	}
	return &ScriptService{
		provider: provider,
		model:    model,
		genCfg:   genCfg,
		linkFix:  linkFix,
		observer: observer,
		logger:   utils.GetLogger(),
	}
}

// WithObserver 返回使用指定观测器的服务副本，原服务不变。
// 用于给单个任务挂接进度上报。
func (s *ScriptService) WithObserver(observer GenerationObserver) *ScriptService {
	if observer == nil {
		observer = NopObserver{}
	}
	clone := *s
	clone.observer = observer
	return &clone
}

// Model 返回当前配置的生成模型名
func (s *ScriptService) Model() string {
	return s.model
}

// GenerationConfig 返回生成参数配置
func (s *ScriptService) GenerationConfig() config.GenerationConfig {
	return s.genCfg
}

// ProcessScript 对一篇论文执行完整流水线，返回逐行脚本文本。
// paperID为空或占位符时跳过链接规整（没有可用的托管路径）。
func (s *ScriptService) ProcessScript(ctx context.Context, paperMarkdown, paperID string) (string, error) {
	script, err := s.ProcessPaper(ctx, paperMarkdown, paperID)
	if err != nil {
		return "", err
	}
	return script.Reconstruct(), nil
}

// ProcessPaper 与ProcessScript相同的流水线，返回结构化脚本供持久化
func (s *ScriptService) ProcessPaper(ctx context.Context, paperMarkdown, paperID string) (*models.PodcastScript, error) {
	if strings.TrimSpace(paperMarkdown) == "" {
		return nil, apperrors.NewValidationError("论文内容为空", nil)
	}
	if paperID == "" {
		paperID = models.PaperIDSentinel
	}

	normalized := paperMarkdown
	if paperID != models.PaperIDSentinel {
		normalized = s.linkFix.NormalizeLinks(paperMarkdown, paperID)
	}

	return s.Generate(ctx, normalized, paperID)
}

// Generate 驱动生成后端产出通过结构校验的脚本。
// 尝试严格串行：前一次的违规清单拼进下一次的修复消息。
// 传输失败（含限流）和校验失败都消耗同一份重试额度。
func (s *ScriptService) Generate(ctx context.Context, paper, paperID string) (*models.PodcastScript, error) {
	if s.provider == nil {
		return nil, apperrors.NewConfigError("生成后端未配置", nil)
	}

	scriptSchema := schema.NewScriptSchema(paperID, s.genCfg.MinDurationMinutes, s.genCfg.MaxDurationMinutes)
	schemaDoc, err := scriptSchema.JSONSchema()
	if err != nil {
		return nil, apperrors.NewProcessingError("构建脚本结构约束失败", err)
	}

	systemPrompt := scriptSystemPrompt
	if paperID == models.PaperIDSentinel {
		systemPrompt = scriptSystemPromptNoLink
	}

	baseMessages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Here is the paper I want you to generate a script from, its paper_id is %s : %s", paperID, paper),
		},
	}

	var (
		result         *models.PodcastScript
		lastDiag       *AttemptDiagnostic
		repairMessages []llm.Message
		attempt        int
	)

	// MaxRetries是总尝试次数上限：额度2意味着第3次尝试永远不会发起
	attemptBudget := s.genCfg.MaxRetries
	if attemptBudget < 1 {
		attemptBudget = 1
	}
	backoff := retry.WithMaxRetries(uint64(attemptBudget-1), retry.NewConstant(time.Second))

	loopErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		req := llm.CompletionRequest{
			Messages:    append(append([]llm.Message(nil), baseMessages...), repairMessages...),
			Model:       s.model,
			Temperature: s.genCfg.Temperature,
			MaxTokens:   s.genCfg.MaxOutputTokens,
			ResponseSchema: &llm.ResponseSchema{
				Name:   "podcast_script",
				Strict: true,
				Schema: schemaDoc,
			},
		}

		diag := &AttemptDiagnostic{
			Attempt:     attempt,
			Model:       req.Model,
			Messages:    req.Messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}
		lastDiag = diag

		s.observer.OnAttemptStart(attempt, req)

		resp, err := s.provider.CompleteText(ctx, req)
		if err != nil {
			diag.Error = err.Error()
			s.observer.OnTransportError(attempt, diag)
			return retry.RetryableError(apperrors.NewTransportError("调用生成后端失败", err))
		}

		diag.RawResponse = resp.Text
		if resp.ModelName != "" {
			diag.Model = resp.ModelName
		}
		s.observer.OnAttemptResponse(attempt, resp)

		candidate, parseErr := decodeCandidate(resp.Text)
		if parseErr != nil {
			diag.Error = parseErr.Error()
			s.observer.OnValidationError(attempt, diag)
			repairMessages = buildRepairMessages(resp.Text,
				"The previous response was not a valid JSON object for the required schema: "+parseErr.Error())
			return retry.RetryableError(parseErr)
		}

		validated, violations := scriptSchema.Validate(candidate)
		if len(violations) > 0 {
			diag.Error = violations.Error()
			s.observer.OnValidationError(attempt, diag)
			repairMessages = buildRepairMessages(resp.Text, violations.Error())
			return retry.RetryableError(violations)
		}

		result = validated
		return nil
	})

	if loopErr != nil {
		// 取消的请求直接上抛，不计为耗尽
		if errors.Is(loopErr, context.Canceled) || errors.Is(loopErr, context.DeadlineExceeded) {
			return nil, apperrors.NewTransportError("生成请求被取消", loopErr)
		}

		s.observer.OnExhausted(lastDiag)
		return nil, &GenerationError{
			AppError:   apperrors.NewExhaustedError(fmt.Sprintf("脚本生成在%d次尝试后失败", attempt), loopErr),
			Diagnostic: lastDiag,
		}
	}

	return result, nil
}

// decodeCandidate 把后端的原始文本解析为候选脚本。
// 容忍模型把JSON包在代码围栏里的情况。
func decodeCandidate(raw string) (*models.PodcastScript, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("empty response received from model")
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var candidate models.PodcastScript
	if err := json.Unmarshal([]byte(text), &candidate); err != nil {
		return nil, fmt.Errorf("decode script candidate: %w", err)
	}
	return &candidate, nil
}

// buildRepairMessages 构造下一次尝试的修复消息对：
// 先回放上一次的原始输出，再附上完整的问题清单
func buildRepairMessages(raw, problems string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleAssistant, Content: raw},
		{
			Role: llm.RoleUser,
			Content: "Your previous response did not satisfy the required format: " + problems +
				". Return a corrected JSON object that fixes every problem listed above.",
		},
	}
}
