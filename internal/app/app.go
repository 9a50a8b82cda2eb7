// internal/app/app.go
package app

import (
	"fmt"
	"path/filepath"

	"github.com/Corphon/PaperCastMCP/internal/config"
	"github.com/Corphon/PaperCastMCP/internal/di"
	"github.com/Corphon/PaperCastMCP/internal/llm"
	"github.com/Corphon/PaperCastMCP/internal/services"
	"github.com/Corphon/PaperCastMCP/internal/storage"
	"github.com/Corphon/PaperCastMCP/internal/utils"

	// 注册可用的生成后端
	_ "github.com/Corphon/PaperCastMCP/internal/llm/providers/google"
	_ "github.com/Corphon/PaperCastMCP/internal/llm/providers/openrouter"
)

// InitServices 按依赖顺序初始化所有服务并注册到容器。
// 生成后端未配置API密钥时服务仍然启动，生成请求会返回配置错误。
func InitServices(cfg *config.Config) error {
	container := di.GetContainer()
	logger := utils.GetLogger()

	// 基础服务
	linkFixService := services.NewLinkFixService()
	container.Register("linkfix", linkFixService)

	paperService := services.NewPaperService()
	container.Register("paper", paperService)

	progressService := services.NewProgressService()
	container.Register("progress", progressService)

	// 脚本持久化
	scriptStore, err := storage.NewScriptStore(filepath.Join(cfg.DataDir, "scripts"))
	if err != nil {
		return fmt.Errorf("初始化脚本存储失败: %w", err)
	}
	container.Register("script_store", scriptStore)

	// 生成后端
	var provider llm.Provider
	if cfg.LLMConfig["api_key"] == "" {
		logger.Warn("未配置生成后端API密钥，脚本生成功能不可用", nil)
	} else {
		provider, err = llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
		if err != nil {
			return fmt.Errorf("初始化生成后端失败: %w", err)
		}
		container.Register("llm", provider)
		logger.Infof("生成后端就绪: %s / %s", provider.GetName(), cfg.LLMConfig["default_model"])
	}

	// 脚本生成服务
	scriptService := services.NewScriptService(
		provider,
		cfg.LLMConfig["default_model"],
		cfg.Generation,
		linkFixService,
		services.NewLoggingObserver("pipeline"),
	)
	container.Register("script", scriptService)

	return nil
}
