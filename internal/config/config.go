// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// 默认生成参数。均可通过环境变量覆盖。
const (
	DefaultMaxRetries         = 2
	DefaultTemperature        = 0.1
	DefaultMaxOutputTokens    = 8000
	DefaultMinDurationMinutes = 0.0
	DefaultMaxDurationMinutes = 6.0
)

// GenerationConfig 生成编排相关的配置
type GenerationConfig struct {
	MaxRetries         int     // 每次生成请求的尝试总数上限
	Temperature        float32 // 采样温度，偏低以贴近确定性输出
	MaxOutputTokens    int     // 单次输出token预算
	MinDurationMinutes float64 // 目标时长下界（含）
	MaxDurationMinutes float64 // 目标时长上界（含）
}

// Config 存储应用配置。进程启动时构造一次，
// 显式传入各服务，核心逻辑内不做任何环境变量查找。
type Config struct {
	Port      string
	DataDir   string
	LogDir    string
	DebugMode bool

	// LLM相关配置
	LLMProvider string
	LLMConfig   map[string]string

	Generation GenerationConfig
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	// 创建配置
	config := &Config{
		Port:        getEnv("PORT", "8080"),
		DataDir:     getEnvPath("DATA_DIR", "data"),
		LogDir:      getEnvPath("LOG_DIR", "logs"),
		DebugMode:   getEnvBool("DEBUG_MODE", true),
		LLMProvider: getEnv("LLM_PROVIDER", "openrouter"),
		LLMConfig: map[string]string{
			"api_key":       getEnv("OPENROUTER_API_KEY", ""),
			"default_model": getEnv("SCRIPTGEN_MODEL", "qwen/qwen3-235b-a22b-thinking-2507"),
			"app_name":      getEnv("APP_NAME", "Podcast Generator"),
			"http_referer":  getEnv("HTTP_REFERER", ""),
		},
		Generation: GenerationConfig{
			MaxRetries:         getEnvInt("MAX_RETRIES", DefaultMaxRetries),
			Temperature:        float32(getEnvFloat("TEMPERATURE", DefaultTemperature)),
			MaxOutputTokens:    getEnvInt("MAX_OUTPUT_TOKENS", DefaultMaxOutputTokens),
			MinDurationMinutes: getEnvFloat("MIN_DURATION_MINUTES", DefaultMinDurationMinutes),
			MaxDurationMinutes: getEnvFloat("MAX_DURATION_MINUTES", DefaultMaxDurationMinutes),
		},
	}

	// google提供者使用独立的密钥和模型变量
	if config.LLMProvider == "google" {
		config.LLMConfig["api_key"] = getEnv("GOOGLE_API_KEY", "")
		config.LLMConfig["default_model"] = getEnv("GEMINI_SCRIPT_MODEL", "gemini-2.5-flash")
	}

	// 验证API密钥
	if config.LLMConfig["api_key"] == "" {
		// 只记录警告，不返回错误；缺失密钥在首次调用时以配置错误上抛
		log.Printf("警告: 未设置%s的API密钥，生成功能在配置前不可用", config.LLMProvider)
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		err = os.MkdirAll(path, 0755)
		if err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数类型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("警告: 环境变量 %s 的值 %q 不是整数，使用默认值 %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvFloat 获取浮点类型环境变量
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("警告: 环境变量 %s 的值 %q 不是数字，使用默认值 %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
