// Package domain 定义了应用程序的数据库模型。
package domain

import "time"

// User 表示应用程序中的用户。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                              // 用户唯一标识符 (主键)
	Username  string    `gorm:"uniqueIndex;size:50;not null" json:"username"`      // 用户名，必须唯一且不能为空
	Email     string    `gorm:"uniqueIndex;size:100;not null" json:"email"`        // 用户邮箱，必须唯一
	Password  string    `gorm:"column:hashed_password;size:100;not null" json:"-"` // 按原样存储，永不序列化
	IsActive  bool      `gorm:"default:true" json:"is_active"`                     // 账号是否激活，默认 true
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`                  // 创建时间 (GORM 自动填充，不可变)
}
