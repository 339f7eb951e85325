package db

import (
	"fmt"

	"sweetshop/internal/config"
	"sweetshop/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
// TranslateErrorで一意制約違反を gorm.ErrDuplicatedKey にそろえる。
func Connect(cfg config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if !cfg.IsProd() {
		logLevel = logger.Info
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return gdb, nil
}

// Migrate はテーブルを作成/更新する
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&model.User{},
		&model.Sweet{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
