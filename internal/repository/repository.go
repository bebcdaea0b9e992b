package repository

import "path/filepath"

// Repositories 仓库集合
type Repositories struct {
	Settings *SettingsRepository
	History  *HistoryRepository
}

// NewRepositories 创建所有仓库
// dataDir 是应用数据目录，设置文件固定为其中的 settings.json
func NewRepositories(dataDir string) *Repositories {
	settings := NewSettingsRepository(filepath.Join(dataDir, "settings.json"))
	return &Repositories{
		Settings: settings,
		History:  NewHistoryRepository(settings),
	}
}
