// internal/models/script.go
package models

import (
	"fmt"
	"sort"
	"strings"
)

// ComponentType 脚本组件类型
type ComponentType string

const (
	ComponentHeadline ComponentType = "Headline"
	ComponentText     ComponentType = "Text"
)

// PaperIDSentinel 表示"无特定论文约束"的占位标识符。
// 校验器遇到该值时跳过论文ID一致性检查，
// 编排器遇到该值时选用不含图片链接指引的系统提示词。
const PaperIDSentinel = "paper_id"

// IsValidComponentType 判断组件类型是否合法
func IsValidComponentType(t string) bool {
	switch ComponentType(strings.TrimSpace(t)) {
	case ComponentHeadline, ComponentText:
		return true
	}
	return false
}

// ScriptComponent 脚本的一个片段（一句标题或一段旁白）
type ScriptComponent struct {
	ComponentType string `json:"component_type" jsonschema:"enum=Text,enum=Headline" jsonschema_description:"Type of script component - either 'Text' or 'Headline'"`
	Content       string `json:"content" jsonschema_description:"Content of the component. For Headlines write complete natural sentences suitable for speaking aloud; for Text regular narrative content."`
	Position      int    `json:"position" jsonschema_description:"Position of the component in the script"`
}

// Kind 返回去除首尾空白后的组件类型
func (c ScriptComponent) Kind() ComponentType {
	return ComponentType(strings.TrimSpace(c.ComponentType))
}

// PodcastScript 一次生成请求的完整输出单元
type PodcastScript struct {
	Title                 string            `json:"title" jsonschema_description:"Title of the research paper"`
	PaperID               string            `json:"paper_id" jsonschema_description:"ArXiv paper ID (e.g. '2405.11273') explicitly mentioned in the paper"`
	TargetDurationMinutes float64           `json:"target_duration_minutes" jsonschema:"minimum=0,maximum=6" jsonschema_description:"Target video duration in minutes"`
	Components            []ScriptComponent `json:"components" jsonschema_description:"Ordered list of script components"`
}

// SortComponents 按position升序排序（校验通过后唯一允许的变更）
func (s *PodcastScript) SortComponents() {
	sort.SliceStable(s.Components, func(i, j int) bool {
		return s.Components[i].Position < s.Components[j].Position
	})
}

// Reconstruct 把结构化脚本序列化为逐行文本：
//
//	\Headline: Understanding GPT-4
//	\Text: Welcome to this review!
//
// 这是下游音频合成环节消费的文本契约。
func (s *PodcastScript) Reconstruct() string {
	lines := make([]string, 0, len(s.Components))
	for _, comp := range s.Components {
		lines = append(lines, fmt.Sprintf("\\%s: %s", strings.TrimSpace(comp.ComponentType), comp.Content))
	}
	return strings.Join(lines, "\n")
}

// ParseScriptText 解析Reconstruct产出的逐行文本，恢复(类型, 内容)序列。
// 不以"\Kind: "开头的行视为格式错误。
func ParseScriptText(text string) ([]ScriptComponent, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("script text is empty")
	}

	var components []ScriptComponent
	for i, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, "\\") {
			return nil, fmt.Errorf("line %d: missing component marker: %q", i+1, line)
		}

		kind, content, found := strings.Cut(line[1:], ": ")
		if !found {
			return nil, fmt.Errorf("line %d: missing ': ' separator: %q", i+1, line)
		}
		if !IsValidComponentType(kind) {
			return nil, fmt.Errorf("line %d: unknown component type %q", i+1, kind)
		}

		components = append(components, ScriptComponent{
			ComponentType: kind,
			Content:       content,
			Position:      i,
		})
	}

	return components, nil
}
