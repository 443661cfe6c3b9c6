// Package setup 负责基础设施 (数据库 / Redis) 的初始化。
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// defaultDSN 是 DATABASE_URL 未设置时使用的本地开发连接串。
const defaultDSN = "root:@tcp(127.0.0.1:3306)/blog?charset=utf8mb4&parseTime=True&loc=Local"

// InitDB 初始化数据库连接。
// databaseURL 为空时记录警告并退回本地默认 DSN，不中止启动。
func InitDB(databaseURL string) (*gorm.DB, error) {
	dsn := databaseURL
	if dsn == "" {
		logrus.Warn("DATABASE_URL not set, falling back to local development DSN")
		dsn = defaultDSN
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("setup: connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("setup: get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logrus.Info("MySQL connected")
	return db, nil
}

// CheckDB 执行一次连通性探测，供 /check-db 健康检查使用。
func CheckDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("setup: get underlying sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("setup: ping database: %w", err)
	}
	return nil
}
