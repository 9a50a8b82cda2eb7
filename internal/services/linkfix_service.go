// internal/services/linkfix_service.go
package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Corphon/PaperCastMCP/internal/utils"
)

// 图片引用行的标记
const imageMarker = "![]("

// LinkFixService 把文档里相对/残缺的图片引用改写为规范的绝对URL。
// 纯文本变换，不做任何网络调用；在生成之前对源文档跑一遍。
type LinkFixService struct {
	logger *utils.Logger
}

// NewLinkFixService 创建链接规整服务
func NewLinkFixService() *LinkFixService {
	return &LinkFixService{
		logger: utils.GetLogger(),
	}
}

// ScopedBase 返回指定论文ID的规范托管路径前缀
func ScopedBase(paperID string) string {
	return "https://arxiv.org/html/" + paperID + "/"
}

// NormalizeLinks 规整文档中所有图片引用行。确定性、幂等：
// 对已规整的文档再跑一遍是无操作。
//
// 替换分两步：先为每个需要修正的行建立 原行→修正行 映射（无变化的行
// 和空行不入映射），再把全部键合成一个正则做单遍替换。键按长度降序
// 排列，保证短键是长键子串时最长匹配优先，不会把长行替换出残片。
func (s *LinkFixService) NormalizeLinks(document, paperID string) string {
	replacements := make(map[string]string)

	for _, line := range strings.Split(document, "\n") {
		if strings.TrimSpace(line) == "" || !strings.Contains(line, imageMarker) {
			continue
		}

		corrected, err := s.correctLine(line, paperID)
		if err != nil {
			// 单行失败只告警跳过，不让整个规整过程失败
			s.logger.Warnf("跳过无法修正的图片引用行 %q: %v", line, err)
			continue
		}
		if corrected == "" || corrected == line {
			continue
		}
		replacements[line] = corrected
	}

	if len(replacements) == 0 {
		return document
	}

	keys := make([]string, 0, len(replacements))
	for k := range replacements {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	quoted := make([]string, 0, len(keys))
	for _, k := range keys {
		quoted = append(quoted, regexp.QuoteMeta(k))
	}

	pattern, err := regexp.Compile(strings.Join(quoted, "|"))
	if err != nil {
		s.logger.Warnf("图片引用替换正则编译失败: %v", err)
		return document
	}

	return pattern.ReplaceAllStringFunc(document, func(match string) string {
		if replacement, ok := replacements[match]; ok {
			return replacement
		}
		return match
	})
}

// correctLine 修正一行中的图片引用目标，保留行内其余文本
func (s *LinkFixService) correctLine(line, paperID string) (string, error) {
	start := strings.Index(line, imageMarker)
	if start < 0 {
		return line, nil
	}

	rest := line[start+len(imageMarker):]
	end := strings.LastIndex(rest, ")")
	if end < 0 {
		return "", fmt.Errorf("image reference is not closed")
	}

	target := rest[:end]
	if strings.TrimSpace(target) == "" {
		return "", fmt.Errorf("image reference is empty")
	}

	return line[:start] + imageMarker + rewriteTarget(target, paperID) + rest[end:], nil
}

// rewriteTarget 按四条有序规则推导引用目标的规范绝对形式
func rewriteTarget(target, paperID string) string {
	scoped := "arxiv.org/html/" + paperID + "/"

	switch {
	case strings.Contains(target, "ar5iv.labs.arxiv.org"):
		// 规则1：已锚定镜像域，只需保证https绝对URL
		if strings.HasPrefix(target, "https://") {
			return target
		}
		if strings.HasPrefix(target, "http://") {
			return "https://" + strings.TrimPrefix(target, "http://")
		}
		return "https://" + target

	case strings.Contains(target, scoped):
		// 规则2：已落在论文自身的托管路径，规整为标准前缀
		idx := strings.Index(target, scoped)
		return ScopedBase(paperID) + target[idx+len(scoped):]

	case strings.HasPrefix(target, "arxiv.org"):
		// 规则3：裸域名token，替换为带论文ID的托管路径
		return "https://arxiv.org/html/" + paperID + strings.TrimPrefix(target, "arxiv.org")

	default:
		// 规则4：裸相对引用，接到论文的托管路径下
		return ScopedBase(paperID) + strings.TrimPrefix(target, "/")
	}
}
