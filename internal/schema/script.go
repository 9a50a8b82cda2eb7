// internal/schema/script.go
package schema

import (
	"fmt"
	"strings"

	"github.com/Corphon/PaperCastMCP/internal/models"
)

// ViolationError 一条结构契约违规。
// 违规信息会原样拼入下一次生成尝试的修正提示，因此必须使用模型可读的英文。
type ViolationError struct {
	Message string
}

func (v ViolationError) Error() string {
	return v.Message
}

// ViolationList 一次校验收集到的全部违规，按发现顺序排列
type ViolationList []ViolationError

func (vs ViolationList) Error() string {
	msgs := make([]string, 0, len(vs))
	for _, v := range vs {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}

// ScriptSchema 脚本结构契约。
// 期望的论文ID和时长边界作为显式参数保存在值里，而不是每次请求动态闭包。
type ScriptSchema struct {
	ExpectedPaperID    string
	MinDurationMinutes float64
	MaxDurationMinutes float64
}

// NewScriptSchema 创建脚本结构契约
func NewScriptSchema(expectedPaperID string, minDuration, maxDuration float64) ScriptSchema {
	return ScriptSchema{
		ExpectedPaperID:    expectedPaperID,
		MinDurationMinutes: minDuration,
		MaxDurationMinutes: maxDuration,
	}
}

// Validate 按结构契约检查候选脚本。一次跑完所有检查并收集每一条违规，
// 这样重试时模型能看到完整的问题清单，而不是修一条再撞下一条。
//
// 成功时返回组件已按position排序的脚本（排序是唯一允许的变更），violations为nil；
// 失败时脚本为nil，violations非空。任何输入都不会panic。
func (s ScriptSchema) Validate(candidate *models.PodcastScript) (*models.PodcastScript, ViolationList) {
	var violations ViolationList

	if candidate == nil {
		return nil, ViolationList{{Message: "Script candidate is missing"}}
	}

	if strings.TrimSpace(candidate.Title) == "" {
		violations = append(violations, ViolationError{Message: "Script must have a non-empty title"})
	}

	if s.ExpectedPaperID != models.PaperIDSentinel && candidate.PaperID != s.ExpectedPaperID {
		violations = append(violations, ViolationError{
			Message: fmt.Sprintf("The paper id is %s, you wrote a wrong one, correct it everywhere", s.ExpectedPaperID),
		})
	}

	if candidate.TargetDurationMinutes < s.MinDurationMinutes || candidate.TargetDurationMinutes > s.MaxDurationMinutes {
		violations = append(violations, ViolationError{
			Message: fmt.Sprintf("target_duration_minutes must be between %g and %g", s.MinDurationMinutes, s.MaxDurationMinutes),
		})
	}

	sorted := *candidate
	if len(candidate.Components) == 0 {
		// 空序列直接判违规，不再做排序相关检查
		violations = append(violations, ViolationError{Message: "Script must contain at least one component"})
	} else {
		sorted.Components = append([]models.ScriptComponent(nil), candidate.Components...)
		sorted.SortComponents()

		consecutive := true
		for i, comp := range sorted.Components {
			if comp.Position != i {
				consecutive = false
				break
			}
		}
		if !consecutive {
			violations = append(violations, ViolationError{Message: "Component positions must be consecutive integers starting from 0"})
		}

		if sorted.Components[0].Kind() != models.ComponentHeadline {
			violations = append(violations, ViolationError{Message: "Script must start with a Headline component"})
		}

		for i := 1; i < len(sorted.Components); i++ {
			prev, cur := sorted.Components[i-1].Kind(), sorted.Components[i].Kind()
			if cur == prev && cur != models.ComponentText {
				violations = append(violations, ViolationError{
					Message: fmt.Sprintf("Consecutive %s components are not allowed", cur),
				})
			}
		}
	}

	for _, comp := range sorted.Components {
		if !models.IsValidComponentType(comp.ComponentType) {
			violations = append(violations, ViolationError{
				Message: fmt.Sprintf("%s is not a valid component_type. Only one of: Text, Headline", strings.TrimSpace(comp.ComponentType)),
			})
		}
		if strings.TrimSpace(comp.Content) == "" {
			violations = append(violations, ViolationError{
				Message: fmt.Sprintf("Component at position %d has empty content", comp.Position),
			})
		}
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return &sorted, nil
}
