package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pokerjest/tvtidy/internal/model"
)

var DB *gorm.DB

func InitDB(storagePath string) error {
	// 确保存储目录存在
	dir := filepath.Dir(storagePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(storagePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// 自动迁移模式
	if err := DB.AutoMigrate(&model.ResolvedShow{}, &model.Run{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
