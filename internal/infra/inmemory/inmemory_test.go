package inmemory_test

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sweetshop/internal/domain/model"
	"sweetshop/internal/domain/stock"
	"sweetshop/internal/infra/inmemory"
	repo "sweetshop/internal/repository"

	"github.com/google/uuid"
	"github.com/matryer/is"
	"github.com/shopspring/decimal"
)

var ctx context.Context = context.Background()

func newStore() *inmemory.Store {
	store, err := inmemory.NewStore()
	if err != nil {
		log.Fatalln(err)
	}
	return store
}

func newSweet(name, category, price string, qty int64, createdAt time.Time) model.Sweet {
	return model.Sweet{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestCreateAndFindSweet(t *testing.T) {
	sweets := newStore().Sweets()

	t.Run("creates a sweet without errors", func(t *testing.T) {
		is := is.New(t)

		s := newSweet("Chocolate Bar", "Chocolate", "2.50", 100, time.Now().UTC())
		created, err := sweets.Create(ctx, s)
		is.NoErr(err)
		is.Equal(created.ID, s.ID)

		found, err := sweets.FindByID(ctx, s.ID)
		is.NoErr(err)
		is.Equal(found.Name, "Chocolate Bar")
		is.True(found.Price.Equal(decimal.RequireFromString("2.5")))
	})

	t.Run("rejects a duplicated id", func(t *testing.T) {
		is := is.New(t)

		s := newSweet("Fudge", "Caramel", "1.00", 1, time.Now().UTC())
		_, err := sweets.Create(ctx, s)
		is.NoErr(err)

		_, err = sweets.Create(ctx, s)
		is.True(err != nil)
	})

	t.Run("finding a non existing sweet returns not found", func(t *testing.T) {
		is := is.New(t)

		_, err := sweets.FindByID(ctx, uuid.NewString())
		is.True(errors.Is(err, repo.ErrNotFound))
	})
}

func TestListAndSearchSweets(t *testing.T) {
	sweets := newStore().Sweets()
	base := time.Now().UTC()

	for _, s := range []model.Sweet{
		newSweet("Milk Chocolate", "Chocolate", "2.00", 10, base.Add(-3*time.Minute)),
		newSweet("Gummy Bears", "Gummy", "1.50", 10, base.Add(-2*time.Minute)),
		newSweet("dark chocolate truffle", "Chocolate", "6.00", 0, base.Add(-1*time.Minute)),
	} {
		if _, err := sweets.Create(ctx, s); err != nil {
			log.Fatalln(err)
		}
	}

	t.Run("lists newest first", func(t *testing.T) {
		is := is.New(t)

		list, err := sweets.List(ctx)
		is.NoErr(err)
		is.Equal(len(list), 3)
		is.Equal(list[0].Name, "dark chocolate truffle")
		is.Equal(list[2].Name, "Milk Chocolate")
	})

	t.Run("name filter is a case insensitive substring", func(t *testing.T) {
		is := is.New(t)

		list, err := sweets.Search(ctx, repo.SweetSearchQuery{Name: "CHOCOLATE"})
		is.NoErr(err)
		is.Equal(len(list), 2)
	})

	t.Run("filters are and-combined with inclusive price bounds", func(t *testing.T) {
		is := is.New(t)

		minP := decimal.RequireFromString("2.00")
		maxP := decimal.RequireFromString("5.99")
		list, err := sweets.Search(ctx, repo.SweetSearchQuery{Category: "choc", MinPrice: &minP, MaxPrice: &maxP})
		is.NoErr(err)
		is.Equal(len(list), 1)
		is.Equal(list[0].Name, "Milk Chocolate")
	})

	t.Run("no match returns an empty slice", func(t *testing.T) {
		is := is.New(t)

		list, err := sweets.Search(ctx, repo.SweetSearchQuery{Name: "licorice"})
		is.NoErr(err)
		is.True(list != nil)
		is.Equal(len(list), 0)
	})
}

func TestUpdateLocked(t *testing.T) {
	sweets := newStore().Sweets()

	t.Run("applies the mutation and keeps id and created_at", func(t *testing.T) {
		is := is.New(t)

		s, err := sweets.Create(ctx, newSweet("Toffee", "Caramel", "1.25", 3, time.Now().UTC()))
		is.NoErr(err)

		updated, err := sweets.UpdateLocked(ctx, s.ID, func(x *model.Sweet) error {
			x.ID = "hijacked"
			x.CreatedAt = time.Time{}
			_, err := stock.Restock(x, 2, time.Now().UTC())
			return err
		})
		is.NoErr(err)
		is.Equal(updated.ID, s.ID)
		is.Equal(updated.Quantity, int64(5))
		is.True(updated.CreatedAt.Equal(s.CreatedAt))
	})

	t.Run("a failing mutation stores nothing", func(t *testing.T) {
		is := is.New(t)

		s, err := sweets.Create(ctx, newSweet("Mint", "Hard Candy", "0.30", 1, time.Now().UTC()))
		is.NoErr(err)

		_, err = sweets.UpdateLocked(ctx, s.ID, func(x *model.Sweet) error {
			x.Name = "changed"
			_, err := stock.Purchase(x, 2, time.Now().UTC())
			return err
		})
		is.True(errors.Is(err, stock.ErrInsufficientStock))

		found, err := sweets.FindByID(ctx, s.ID)
		is.NoErr(err)
		is.Equal(found.Name, "Mint")
		is.Equal(found.Quantity, int64(1))
	})

	t.Run("missing id returns not found", func(t *testing.T) {
		is := is.New(t)

		_, err := sweets.UpdateLocked(ctx, uuid.NewString(), func(*model.Sweet) error { return nil })
		is.True(errors.Is(err, repo.ErrNotFound))
	})
}

func TestUpdateLocked_ConcurrentPurchasesNeverOversell(t *testing.T) {
	is := is.New(t)
	sweets := newStore().Sweets()

	s, err := sweets.Create(ctx, newSweet("Caramel", "Caramel", "0.99", 5, time.Now().UTC()))
	is.NoErr(err)

	var success, shortage int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sweets.UpdateLocked(ctx, s.ID, func(x *model.Sweet) error {
				_, err := stock.Purchase(x, 1, time.Now().UTC())
				return err
			})
			switch {
			case err == nil:
				atomic.AddInt64(&success, 1)
			case errors.Is(err, stock.ErrInsufficientStock):
				atomic.AddInt64(&shortage, 1)
			}
		}()
	}
	wg.Wait()

	is.Equal(success, int64(5))
	is.Equal(shortage, int64(5))

	found, err := sweets.FindByID(ctx, s.ID)
	is.NoErr(err)
	is.Equal(found.Quantity, int64(0))
}

// 別IDのロック中でもブロックされない
func TestUpdateLocked_DistinctRecordsDoNotBlock(t *testing.T) {
	is := is.New(t)
	sweets := newStore().Sweets()

	a, err := sweets.Create(ctx, newSweet("A", "X", "1.00", 1, time.Now().UTC()))
	is.NoErr(err)
	b, err := sweets.Create(ctx, newSweet("B", "X", "1.00", 1, time.Now().UTC()))
	is.NoErr(err)

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = sweets.UpdateLocked(ctx, a.ID, func(*model.Sweet) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	done := make(chan error, 1)
	go func() {
		_, err := sweets.UpdateLocked(ctx, b.ID, func(x *model.Sweet) error {
			_, err := stock.Purchase(x, 1, time.Now().UTC())
			return err
		})
		done <- err
	}()

	select {
	case err := <-done:
		is.NoErr(err)
	case <-time.After(2 * time.Second):
		t.Fatal("update of another record was blocked")
	}
	close(release)
}

func TestDeleteSweet(t *testing.T) {
	is := is.New(t)
	sweets := newStore().Sweets()

	s, err := sweets.Create(ctx, newSweet("Nougat", "Nougat", "2.20", 4, time.Now().UTC()))
	is.NoErr(err)

	is.NoErr(sweets.Delete(ctx, s.ID))
	is.True(errors.Is(sweets.Delete(ctx, s.ID), repo.ErrNotFound))

	_, err = sweets.FindByID(ctx, s.ID)
	is.True(errors.Is(err, repo.ErrNotFound))
}

func TestUsers(t *testing.T) {
	users := newStore().Users()

	t.Run("creates and finds a user", func(t *testing.T) {
		is := is.New(t)

		u := &model.User{ID: uuid.NewString(), Username: "alice", Email: "Alice@Example.com", PasswordHash: "h"}
		is.NoErr(users.Create(ctx, u))

		byName, err := users.FindByUsername(ctx, "alice")
		is.NoErr(err)
		is.Equal(byName.ID, u.ID)

		byEmail, err := users.FindByEmail(ctx, "alice@example.com")
		is.NoErr(err)
		is.Equal(byEmail.ID, u.ID)
	})

	t.Run("rejects duplicated username or email", func(t *testing.T) {
		is := is.New(t)

		sameName := &model.User{ID: uuid.NewString(), Username: "alice", Email: "x@example.com", PasswordHash: "h"}
		is.True(errors.Is(users.Create(ctx, sameName), repo.ErrDuplicateUser))

		sameEmail := &model.User{ID: uuid.NewString(), Username: "bob", Email: "alice@example.com", PasswordHash: "h"}
		is.True(errors.Is(users.Create(ctx, sameEmail), repo.ErrDuplicateUser))
	})

	t.Run("unknown user returns not found", func(t *testing.T) {
		is := is.New(t)

		_, err := users.FindByID(ctx, uuid.NewString())
		is.True(errors.Is(err, repo.ErrUserNotFound))
	})
}
