// internal/mcp/server.go
package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Corphon/PaperCastMCP/internal/services"
	"github.com/Corphon/PaperCastMCP/internal/utils"
)

// Server 把脚本生成流水线封装为MCP工具服务
type Server struct {
	mcpServer     *server.MCPServer
	httpServer    *server.StreamableHTTPServer
	scriptService *services.ScriptService
	paperService  *services.PaperService
	logger        *utils.Logger
}

// NewServer 创建MCP服务端并注册工具
func NewServer(scriptService *services.ScriptService, paperService *services.PaperService) *Server {
	mcpServer := server.NewMCPServer(
		"Podcast Generator",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		mcpServer:     mcpServer,
		scriptService: scriptService,
		paperService:  paperService,
		logger:        utils.GetLogger(),
	}

	s.registerTools()

	// 无状态模式：每次工具调用独立，不维护会话
	s.httpServer = server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
	)

	return s
}

// Handler 返回可挂载到任意HTTP路由的处理器
func (s *Server) Handler() http.Handler {
	return s.httpServer
}

// registerTools 注册对外暴露的工具
func (s *Server) registerTools() {
	generateScript := mcp.NewTool("generate_script",
		mcp.WithDescription("Generate a spoken-word podcast script from a research paper. "+
			"Provide either the paper's HTML page URL or its arXiv identifier."),
		mcp.WithString("paper_url",
			mcp.Description("URL of the paper's HTML page (for example an ar5iv page)"),
		),
		mcp.WithString("paper_id",
			mcp.Description("arXiv identifier of the paper, e.g. 1706.03762. "+
				"Used to fetch the paper when no URL is given and to rewrite figure links."),
		),
	)

	s.mcpServer.AddTool(generateScript, s.handleGenerateScript)
}

// handleGenerateScript 处理generate_script工具调用
func (s *Server) handleGenerateScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paperURL := strings.TrimSpace(request.GetString("paper_url", ""))
	paperID := strings.TrimSpace(request.GetString("paper_id", ""))

	if paperURL == "" && paperID == "" {
		return mcp.NewToolResultError("either paper_url or paper_id must be provided"), nil
	}

	s.logger.Infof("MCP tool call: generate_script url=%q id=%q", paperURL, paperID)

	var (
		paperMarkdown string
		err           error
	)
	if paperURL != "" {
		paperMarkdown, err = s.paperService.FetchPaperHTML(ctx, paperURL)
	} else {
		paperMarkdown, err = s.paperService.FetchPaperByID(ctx, paperID)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch paper: %v", err)), nil
	}

	scriptText, err := s.scriptService.ProcessScript(ctx, paperMarkdown, paperID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("script generation failed: %v", err)), nil
	}

	return mcp.NewToolResultText(scriptText), nil
}
