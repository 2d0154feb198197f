// Package domain 用户领域模型
package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrUserNotFound 用户不存在
var ErrUserNotFound = errors.New("user not found")

// User 用户实体
type User struct {
	gorm.Model
	Username string `gorm:"column:username;type:varchar(64);uniqueIndex;not null" json:"username"` // 用户名
	Email    string `gorm:"column:email;type:varchar(128)" json:"email"`                           // 邮箱
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// UserRepository 用户仓储接口
type UserRepository interface {
	// Save 保存用户
	Save(ctx context.Context, user *User) error
	// FindByID 按 ID 查找用户，不存在时返回 ErrUserNotFound
	FindByID(ctx context.Context, id uint64) (*User, error)
	// FindByUsername 按用户名查找用户，不存在时返回 ErrUserNotFound
	FindByUsername(ctx context.Context, username string) (*User, error)
}
