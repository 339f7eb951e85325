package inmemory

import (
	"context"
	"sync"
	"testing"

	"sweetshop/internal/domain/model"

	"github.com/google/uuid"
	"github.com/matryer/is"
	"github.com/shopspring/decimal"
)

func TestIDLocks_ReleasedEntriesArePruned(t *testing.T) {
	is := is.New(t)

	var l idLocks
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("a")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	is.Equal(counter, 50)
	is.Equal(l.len(), 0)
}

func TestSweetRepository_LocksDoNotLeak(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	store, err := NewStore()
	is.NoErr(err)
	sweets := store.Sweets()

	s, err := sweets.Create(ctx, model.Sweet{
		ID:       uuid.NewString(),
		Name:     "Toffee",
		Category: "Candy",
		Price:    decimal.RequireFromString("1.00"),
		Quantity: 3,
	})
	is.NoErr(err)

	_, err = sweets.UpdateLocked(ctx, s.ID, func(s *model.Sweet) error {
		s.Quantity--
		return nil
	})
	is.NoErr(err)

	// 存在しないIDへの操作もエントリを残さない
	_, _ = sweets.UpdateLocked(ctx, uuid.NewString(), func(*model.Sweet) error { return nil })
	_ = sweets.Delete(ctx, uuid.NewString())

	is.NoErr(sweets.Delete(ctx, s.ID))
	is.Equal(sweets.locks.len(), 0)
}
