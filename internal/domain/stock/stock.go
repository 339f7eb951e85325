// Package stock は在庫数の増減ルールだけを持つ。
// I/Oもロックも持たないので、呼び出し側が1レコード単位で直列化すること。
package stock

import (
	"errors"
	"fmt"
	"math"
	"time"

	"sweetshop/internal/domain/model"
)

var (
	// 数量が0以下
	ErrInvalidAmount = errors.New("invalid amount")

	// 加算するとint64を超える
	ErrAmountTooLarge = fmt.Errorf("%w: amount too large", ErrInvalidAmount)

	// 在庫が足りない
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError は判定時点の在庫数を持つ。
type InsufficientStockError struct {
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock. Only %d available.", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Purchase は在庫をamountだけ減らし、減らした後の在庫数を返す。
// エラー時はsを一切変更しない。
func Purchase(s *model.Sweet, amount int64, now time.Time) (int64, error) {
	if amount <= 0 {
		return s.Quantity, ErrInvalidAmount
	}
	if amount > s.Quantity {
		return s.Quantity, &InsufficientStockError{Available: s.Quantity}
	}

	s.Quantity -= amount
	s.UpdatedAt = now
	return s.Quantity, nil
}

// Restock は在庫をamountだけ増やし、増やした後の在庫数を返す。
func Restock(s *model.Sweet, amount int64, now time.Time) (int64, error) {
	if amount <= 0 {
		return s.Quantity, ErrInvalidAmount
	}
	if s.Quantity > math.MaxInt64-amount {
		return s.Quantity, ErrAmountTooLarge
	}

	s.Quantity += amount
	s.UpdatedAt = now
	return s.Quantity, nil
}
