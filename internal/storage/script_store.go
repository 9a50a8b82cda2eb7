// internal/storage/script_store.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Corphon/PaperCastMCP/internal/errors"
)

// StoredScript 持久化的生成结果：逐行脚本文本加生成元数据
type StoredScript struct {
	ID                    string    `json:"id"`
	PaperID               string    `json:"paper_id"`
	Title                 string    `json:"title"`
	Model                 string    `json:"model,omitempty"`
	TargetDurationMinutes float64   `json:"target_duration_minutes"`
	ComponentCount        int       `json:"component_count"`
	ScriptText            string    `json:"script_text"`
	CreatedAt             time.Time `json:"created_at"`
}

// ScriptStore 把生成的脚本保存为JSON文件，一个脚本一个文件
type ScriptStore struct {
	baseDir string

	// 文件级别锁 path -> *sync.RWMutex
	fileLocks sync.Map
}

// NewScriptStore 创建脚本存储
func NewScriptStore(baseDir string) (*ScriptStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &ScriptStore{baseDir: baseDir}, nil
}

// 获取文件锁
func (s *ScriptStore) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := s.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

func (s *ScriptStore) pathFor(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// Save 保存脚本。写入是原子的：先写临时文件再改名。
func (s *ScriptStore) Save(script *StoredScript) error {
	if script == nil || strings.TrimSpace(script.ID) == "" {
		return fmt.Errorf("脚本ID为空，无法保存")
	}
	if strings.ContainsAny(script.ID, `/\`) {
		return fmt.Errorf("脚本ID包含非法字符: %s", script.ID)
	}

	data, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化脚本失败: %w", err)
	}

	fullPath := s.pathFor(script.ID)
	lock := s.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("保存临时文件失败: %w", err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("保存脚本失败: %w", err)
	}

	return nil
}

// Load 按ID读取脚本
func (s *ScriptStore) Load(id string) (*StoredScript, error) {
	if strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("脚本ID包含非法字符: %s", id)
	}

	fullPath := s.pathFor(id)
	lock := s.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("脚本不存在: "+id, err)
		}
		return nil, fmt.Errorf("读取脚本失败: %w", err)
	}

	var script StoredScript
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("解析脚本文件失败: %w", err)
	}
	return &script, nil
}

// List 返回全部已保存脚本的元数据，按创建时间倒序。
// 列表不携带脚本正文，避免一次读入所有文本。
func (s *ScriptStore) List() ([]*StoredScript, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("读取存储目录失败: %w", err)
	}

	scripts := make([]*StoredScript, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		script, err := s.Load(id)
		if err != nil {
			// 跳过损坏的文件，不让整个列表失败
			continue
		}
		script.ScriptText = ""
		scripts = append(scripts, script)
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].CreatedAt.After(scripts[j].CreatedAt)
	})
	return scripts, nil
}

// Delete 删除指定脚本
func (s *ScriptStore) Delete(id string) error {
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("脚本ID包含非法字符: %s", id)
	}

	fullPath := s.pathFor(id)
	lock := s.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return apperrors.NewNotFoundError("脚本不存在: "+id, err)
		}
		return fmt.Errorf("删除脚本失败: %w", err)
	}
	return nil
}
