// internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/Corphon/PaperCastMCP/internal/errors"
	"github.com/Corphon/PaperCastMCP/internal/models"
	"github.com/Corphon/PaperCastMCP/internal/services"
	"github.com/Corphon/PaperCastMCP/internal/storage"
	"github.com/Corphon/PaperCastMCP/internal/utils"
)

// 异步生成任务的兜底超时，避免失联任务永久占用追踪器
const asyncGenerationTimeout = 10 * time.Minute

// APIResponse 统一API响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError API错误详情
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Handler API处理器结构体
type Handler struct {
	ScriptService   *services.ScriptService
	PaperService    *services.PaperService
	ProgressService *services.ProgressService
	ScriptStore     *storage.ScriptStore
	WSManager       *WebSocketManager

	// 统一响应助手
	Response *ResponseHelper

	logger *utils.Logger
}

// NewHandler 创建API处理器
func NewHandler(
	scriptService *services.ScriptService,
	paperService *services.PaperService,
	progressService *services.ProgressService,
	scriptStore *storage.ScriptStore,
) *Handler {
	return &Handler{
		ScriptService:   scriptService,
		PaperService:    paperService,
		ProgressService: progressService,
		ScriptStore:     scriptStore,
		WSManager:       NewWebSocketManager(),
		Response:        NewResponseHelper(),
		logger:          utils.GetLogger(),
	}
}

// GenerateScriptRequest 脚本生成请求
type GenerateScriptRequest struct {
	PaperID       string `json:"paper_id"`       // arXiv编号，控制链接改写目标
	PaperURL      string `json:"paper_url"`      // 论文HTML页面地址
	PaperMarkdown string `json:"paper_markdown"` // 直接提供的论文内容，优先于URL
	Async         bool   `json:"async"`          // true时立即返回任务ID，通过进度接口跟踪
}

// GenerateScriptResult 脚本生成结果
type GenerateScriptResult struct {
	TaskID         string `json:"task_id"`
	ScriptID       string `json:"script_id,omitempty"`
	PaperID        string `json:"paper_id,omitempty"`
	Title          string `json:"title,omitempty"`
	Model          string `json:"model,omitempty"`
	ComponentCount int    `json:"component_count,omitempty"`
	ScriptText     string `json:"script_text,omitempty"`
	Status         string `json:"status"`
}

// GenerateScriptHandler 处理脚本生成请求
// POST /api/scripts
func (h *Handler) GenerateScriptHandler(c *gin.Context) {
	var req GenerateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	if strings.TrimSpace(req.PaperMarkdown) == "" &&
		strings.TrimSpace(req.PaperURL) == "" &&
		strings.TrimSpace(req.PaperID) == "" {
		h.Response.BadRequest(c, "需要提供paper_markdown、paper_url或paper_id之一")
		return
	}

	taskID := uuid.New().String()
	tracker := h.ProgressService.CreateTracker(taskID)

	if req.Async {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), asyncGenerationTimeout)
			defer cancel()
			h.runGeneration(ctx, taskID, tracker, &req)
		}()

		h.Response.Success(c, &GenerateScriptResult{
			TaskID: taskID,
			Status: "running",
		}, "任务已创建，请通过进度接口跟踪")
		return
	}

	stored, err := h.runGeneration(c.Request.Context(), taskID, tracker, &req)
	if err != nil {
		h.respondGenerationError(c, err)
		return
	}

	h.Response.Created(c, &GenerateScriptResult{
		TaskID:         taskID,
		ScriptID:       stored.ID,
		PaperID:        stored.PaperID,
		Title:          stored.Title,
		Model:          stored.Model,
		ComponentCount: stored.ComponentCount,
		ScriptText:     stored.ScriptText,
		Status:         "completed",
	}, "脚本生成成功")
}

// runGeneration 执行完整的生成流水线并持久化结果。
// 进度通过tracker上报，同步和异步路径共用。
func (h *Handler) runGeneration(ctx context.Context, taskID string, tracker *services.ProgressTracker, req *GenerateScriptRequest) (*storage.StoredScript, error) {
	paperMarkdown := req.PaperMarkdown
	paperID := strings.TrimSpace(req.PaperID)

	if strings.TrimSpace(paperMarkdown) == "" {
		tracker.UpdateProgress(5, "正在获取论文内容")

		var (
			fetched string
			err     error
		)
		if url := strings.TrimSpace(req.PaperURL); url != "" {
			fetched, err = h.PaperService.FetchPaperHTML(ctx, url)
		} else {
			fetched, err = h.PaperService.FetchPaperByID(ctx, paperID)
		}
		if err != nil {
			tracker.Fail(err.Error())
			return nil, &paperFetchError{apperrors.WrapError(err, "获取论文内容失败", apperrors.ErrorTypeTransport)}
		}
		paperMarkdown = fetched
	}

	genCfg := h.ScriptService.GenerationConfig()
	observer := services.NewProgressObserver(tracker, genCfg.MaxRetries,
		services.NewLoggingObserver("api/"+taskID))

	script, err := h.ScriptService.WithObserver(observer).ProcessPaper(ctx, paperMarkdown, paperID)
	if err != nil {
		tracker.Fail(err.Error())
		return nil, err
	}

	tracker.UpdateProgress(95, "正在保存脚本")

	stored := &storage.StoredScript{
		ID:                    taskID,
		PaperID:               script.PaperID,
		Title:                 script.Title,
		Model:                 h.ScriptService.Model(),
		TargetDurationMinutes: script.TargetDurationMinutes,
		ComponentCount:        len(script.Components),
		ScriptText:            script.Reconstruct(),
		CreatedAt:             time.Now(),
	}
	if stored.PaperID == models.PaperIDSentinel {
		stored.PaperID = ""
	}

	if err := h.ScriptStore.Save(stored); err != nil {
		tracker.Fail(err.Error())
		return nil, apperrors.WrapError(err, "保存脚本失败", apperrors.ErrorTypeError)
	}

	tracker.Complete("脚本生成完成")
	return stored, nil
}

// paperFetchError 标记失败发生在论文获取阶段而非生成阶段
type paperFetchError struct {
	error
}

func (e *paperFetchError) Unwrap() error { return e.error }

// respondGenerationError 把流水线错误映射为对应的HTTP响应
func (h *Handler) respondGenerationError(c *gin.Context, err error) {
	var fetchErr *paperFetchError
	switch {
	case errors.As(err, &fetchErr):
		h.Response.Error(c, 502, ErrorPaperFetchFailed, err.Error())
	case apperrors.IsValidationError(err):
		h.Response.Error(c, 400, ErrorValidationFailed, err.Error())
	case apperrors.IsExhaustedError(err):
		h.Response.Error(c, 502, ErrorGenerationExhausted, err.Error())
	case apperrors.IsTransportError(err):
		h.Response.Error(c, 502, ErrorLLMServiceUnavailable, err.Error())
	default:
		h.Response.InternalError(c, "脚本生成失败", err.Error())
	}
}

// ListScriptsHandler 列出所有已保存的脚本（仅元数据）
// GET /api/scripts
func (h *Handler) ListScriptsHandler(c *gin.Context) {
	scripts, err := h.ScriptStore.List()
	if err != nil {
		h.Response.Error(c, 500, ErrorStorageFailed, "读取脚本列表失败", err.Error())
		return
	}
	h.Response.Success(c, gin.H{
		"scripts": scripts,
		"count":   len(scripts),
	})
}

// GetScriptHandler 获取单个脚本
// GET /api/scripts/:id
func (h *Handler) GetScriptHandler(c *gin.Context) {
	id := c.Param("id")
	script, err := h.ScriptStore.Load(id)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			h.Response.Error(c, 404, ErrorScriptNotFound, "脚本不存在: "+id)
			return
		}
		h.Response.Error(c, 500, ErrorStorageFailed, "读取脚本失败", err.Error())
		return
	}
	h.Response.Success(c, script)
}

// DeleteScriptHandler 删除脚本
// DELETE /api/scripts/:id
func (h *Handler) DeleteScriptHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.ScriptStore.Delete(id); err != nil {
		if apperrors.IsNotFoundError(err) {
			h.Response.Error(c, 404, ErrorScriptNotFound, "脚本不存在: "+id)
			return
		}
		h.Response.Error(c, 500, ErrorStorageFailed, "删除脚本失败", err.Error())
		return
	}
	h.Response.Success(c, gin.H{"id": id}, "脚本已删除")
}

// GetProgressHandler 查询任务进度快照
// GET /api/progress/:taskID
func (h *Handler) GetProgressHandler(c *gin.Context) {
	taskID := c.Param("taskID")
	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.Error(c, 404, ErrorTaskNotFound, "任务不存在: "+taskID)
		return
	}

	snapshot := tracker.Snapshot()
	h.Response.Success(c, gin.H{
		"task_id":     snapshot.TaskID,
		"progress":    snapshot.Progress,
		"message":     snapshot.Message,
		"status":      snapshot.Status,
		"start_time":  snapshot.StartTime,
		"update_time": snapshot.UpdateTime,
		"subscribers": h.WSManager.ClientCount(taskID),
	})
}

// HealthCheckHandler 健康检查
// GET /api/health
func (h *Handler) HealthCheckHandler(c *gin.Context) {
	llmReady := h.ScriptService != nil && h.ScriptService.Model() != ""
	if !llmReady {
		h.Response.ServiceUnavailable(c, "LLM服务未就绪", "缺少可用的模型配置")
		return
	}

	h.Response.Success(c, gin.H{
		"status":    "ok",
		"llm_ready": true,
		"time":      time.Now(),
	})
}
