// cmd/demo/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Corphon/PaperCastMCP/internal/app"
	"github.com/Corphon/PaperCastMCP/internal/config"
	"github.com/Corphon/PaperCastMCP/internal/di"
	"github.com/Corphon/PaperCastMCP/internal/services"
	"github.com/Corphon/PaperCastMCP/internal/utils"
)

func main() {
	paperID := flag.String("paper", "1706.03762", "arXiv编号")
	paperFile := flag.String("file", "", "本地论文文件路径（优先于arXiv获取）")
	timeout := flag.Duration("timeout", 5*time.Minute, "整体超时")
	flag.Parse()

	fmt.Println("🚀 PaperCastMCP Demo")
	fmt.Println("=================================")

	// 初始化配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Printf("❌ 加载基础配置失败: %v", err)
		return
	}

	// 初始化日志系统
	logFile := fmt.Sprintf("logs/demo_%s.log", time.Now().Format("2006-01-02"))
	if err := utils.InitLogger(logFile); err != nil {
		log.Printf("⚠️ 无法初始化结构化日志: %v", err)
		log.Println("继续运行...")
	}

	// 初始化服务
	if err := app.InitServices(baseConfig); err != nil {
		log.Printf("❌ 初始化服务失败: %v", err)
		return
	}

	container := di.GetContainer()
	scriptService, _ := container.Get("script").(*services.ScriptService)
	paperService, _ := container.Get("paper").(*services.PaperService)
	if scriptService == nil || paperService == nil {
		log.Println("❌ 服务未正确初始化")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// 获取论文内容
	var paperMarkdown string
	if *paperFile != "" {
		data, err := os.ReadFile(*paperFile)
		if err != nil {
			log.Printf("❌ 读取论文文件失败: %v", err)
			return
		}
		paperMarkdown = string(data)
		fmt.Printf("📄 已加载本地论文: %s (%d 字节)\n", *paperFile, len(data))
	} else {
		fmt.Printf("📄 正在获取论文 %s ...\n", *paperID)
		paperMarkdown, err = paperService.FetchPaperByID(ctx, *paperID)
		if err != nil {
			log.Printf("❌ 获取论文失败: %v", err)
			return
		}
		fmt.Printf("📄 获取成功 (%d 字节)\n", len(paperMarkdown))
	}

	// 运行生成流水线
	fmt.Println("🎙️ 正在生成播客脚本...")
	start := time.Now()

	scriptText, err := scriptService.ProcessScript(ctx, paperMarkdown, *paperID)
	if err != nil {
		var genErr *services.GenerationError
		if errors.As(err, &genErr) && genErr.Diagnostic != nil {
			log.Printf("❌ 生成失败（第%d次尝试后）: %v", genErr.Diagnostic.Attempt, err)
			log.Printf("   最后一次响应摘录: %s", genErr.Diagnostic.RawResponseExcerpt())
		} else {
			log.Printf("❌ 生成失败: %v", err)
		}
		return
	}

	fmt.Printf("✅ 生成完成，耗时 %s\n", time.Since(start).Round(time.Second))
	fmt.Println("=================================")
	fmt.Println(scriptText)
	fmt.Println("=================================")

	// 保存结果
	outPath := filepath.Join(baseConfig.DataDir, fmt.Sprintf("script_%s.txt", *paperID))
	if err := os.MkdirAll(baseConfig.DataDir, 0755); err == nil {
		if err := os.WriteFile(outPath, []byte(scriptText), 0644); err == nil {
			fmt.Printf("💾 脚本已保存到 %s\n", outPath)
		}
	}
}
