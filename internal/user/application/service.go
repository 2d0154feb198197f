// Package application 用户服务应用层
package application

import (
	"context"
	"errors"

	"github.com/wyfcoding/stocksimulator/internal/user/domain"
)

// UserService 用户服务
type UserService struct {
	users domain.UserRepository
}

// NewUserService 构造函数
func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

// Register 注册用户。用户名已存在时直接返回已有用户，保证重复注册幂等。
func (s *UserService) Register(ctx context.Context, username, email string) (*domain.User, error) {
	existing, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	user := &domain.User{Username: username, Email: email}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get 按 ID 查询用户
func (s *UserService) Get(ctx context.Context, id uint64) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}
