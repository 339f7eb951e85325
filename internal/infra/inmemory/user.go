package inmemory

import (
	"context"
	"fmt"

	"sweetshop/internal/domain/model"
	repo "sweetshop/internal/repository"

	"github.com/hashicorp/go-memdb"
)

type UserRepository struct {
	db *memdb.MemDB
}

var _ repo.UserRepository = (*UserRepository)(nil)

// 重複チェックと挿入を同じ書き込みtxnで行う
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	for index, value := range map[string]string{"id": user.ID, "username": user.Username, "email": user.Email} {
		raw, err := txn.First(tableUser, index, value)
		if err != nil {
			return fmt.Errorf("storing user: %w", err)
		}
		if raw != nil {
			return repo.ErrDuplicateUser
		}
	}

	if err := txn.Insert(tableUser, *user); err != nil {
		return fmt.Errorf("storing user: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.first("id", id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first("username", username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first("email", email)
}

func (r *UserRepository) first(index string, value string) (*model.User, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableUser, index, value)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if raw == nil {
		return nil, repo.ErrUserNotFound
	}
	u := raw.(model.User)
	return &u, nil
}
