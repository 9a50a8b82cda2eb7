// internal/schema/jsonschema.go
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/Corphon/PaperCastMCP/internal/models"
)

// JSONSchema 把脚本契约反射为JSON Schema文档，
// 作为结构化输出约束随请求发给生成后端。
// 期望的论文ID（非占位符时）写进paper_id字段的描述里，帮助模型第一次就填对。
func (s ScriptSchema) JSONSchema() (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}

	reflected := reflector.Reflect(&models.PodcastScript{})
	reflected.Version = ""

	data, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("reflect script schema: %w", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode reflected schema: %w", err)
	}

	if props, ok := doc["properties"].(map[string]interface{}); ok {
		if duration, ok := props["target_duration_minutes"].(map[string]interface{}); ok {
			duration["minimum"] = s.MinDurationMinutes
			duration["maximum"] = s.MaxDurationMinutes
		}
		if paperID, ok := props["paper_id"].(map[string]interface{}); ok && s.ExpectedPaperID != models.PaperIDSentinel {
			paperID["description"] = fmt.Sprintf("ArXiv paper ID. For this paper it must be exactly '%s'.", s.ExpectedPaperID)
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode script schema: %w", err)
	}
	return out, nil
}
