// internal/services/paper_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	apperrors "github.com/Corphon/PaperCastMCP/internal/errors"
	"github.com/Corphon/PaperCastMCP/internal/utils"
)

// PaperService 拉取论文的HTML渲染版本。
// 流水线核心不依赖它：核心只消费已就位的文档文本，拉取属于外围协作者。
type PaperService struct {
	client *resty.Client
	logger *utils.Logger
}

// NewPaperService 创建论文拉取服务
func NewPaperService() *PaperService {
	client := resty.New().
		SetTimeout(60 * time.Second).
		SetHeader("User-Agent", "PaperCastMCP/1.0")

	return &PaperService{
		client: client,
		logger: utils.GetLogger(),
	}
}

// Ar5ivURL 返回论文ID对应的ar5iv HTML地址
func Ar5ivURL(paperID string) string {
	return "https://ar5iv.labs.arxiv.org/html/" + paperID
}

// FetchPaperHTML 拉取给定地址的论文HTML全文
func (s *PaperService) FetchPaperHTML(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", apperrors.NewValidationError("论文地址为空", nil)
	}

	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", apperrors.NewTransportError(fmt.Sprintf("拉取论文失败: %s", url), err)
	}
	if resp.IsError() {
		return "", apperrors.NewTransportError(
			fmt.Sprintf("拉取论文失败(%d): %s", resp.StatusCode(), url), nil)
	}

	body := resp.String()
	s.logger.Info("paper fetched", map[string]interface{}{
		"url":   url,
		"bytes": len(body),
	})
	return body, nil
}

// FetchPaperByID 按论文ID从ar5iv拉取HTML全文
func (s *PaperService) FetchPaperByID(ctx context.Context, paperID string) (string, error) {
	if strings.TrimSpace(paperID) == "" {
		return "", apperrors.NewValidationError("论文ID为空", nil)
	}
	return s.FetchPaperHTML(ctx, Ar5ivURL(paperID))
}
