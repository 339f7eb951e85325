package repository

import (
	"context"
	"errors"

	"sweetshop/internal/domain/model"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// username / email の重複
var ErrDuplicateUser = errors.New("user already exists")

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（重複はErrDuplicateUser）
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}
