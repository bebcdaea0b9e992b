package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SettingsRepository 本地设置的 JSON 文件持久化
// 单写者：所有写入都经过 load-modify-flush，损坏的文件降级为空设置
type SettingsRepository struct {
	mu   sync.Mutex
	path string
}

// NewSettingsRepository 创建设置仓库
func NewSettingsRepository(path string) *SettingsRepository {
	return &SettingsRepository{path: path}
}

// Path 返回设置文件路径
func (r *SettingsRepository) Path() string {
	return r.path
}

// Get 读取设置值，缺失或文件损坏时返回默认值
func (r *SettingsRepository) Get(key, fallback string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := r.load()
	if v, ok := values[key]; ok {
		return v
	}
	return fallback
}

// Set 写入设置值并立即落盘
func (r *SettingsRepository) Set(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := r.load()
	values[key] = value
	return r.flush(values)
}

// Delete 删除设置值
func (r *SettingsRepository) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := r.load()
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return r.flush(values)
}

// load 读取整个设置文件
// 文件缺失或 JSON 损坏时返回空映射，绝不报错
func (r *SettingsRepository) load() map[string]string {
	values := make(map[string]string)

	data, err := os.ReadFile(r.path)
	if err != nil {
		return values
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return make(map[string]string)
	}
	return values
}

// flush 全量覆盖写回设置文件
func (r *SettingsRepository) flush(values map[string]string) error {
	if dir := filepath.Dir(r.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
