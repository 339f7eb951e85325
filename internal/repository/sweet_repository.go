package repository

import (
	"context"
	"errors"

	"sweetshop/internal/domain/model"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// 検索条件。空文字/nilは条件なし。
type SweetSearchQuery struct {
	Name     string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// ロック中のレコードを書き換える関数。
// errorを返した場合は何も保存されない。
type SweetMutator func(s *model.Sweet) error

// 商品の永続化だけを約束。
type SweetRepository interface {
	Create(ctx context.Context, s model.Sweet) (model.Sweet, error)
	FindByID(ctx context.Context, id string) (model.Sweet, error)

	// 新しい順（created_at desc, id desc）
	List(ctx context.Context) ([]model.Sweet, error)
	Search(ctx context.Context, q SweetSearchQuery) ([]model.Sweet, error)

	// 1レコード単位で直列化された read-modify-write。
	// 別IDの更新はお互いをブロックしない。
	UpdateLocked(ctx context.Context, id string, fn SweetMutator) (model.Sweet, error)

	Delete(ctx context.Context, id string) error
}
