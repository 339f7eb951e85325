package repository_test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"sweetshop/internal/config"
	"sweetshop/internal/domain/model"
	"sweetshop/internal/domain/stock"
	"sweetshop/internal/infra/db"
	infraRepo "sweetshop/internal/infra/repository"
	repo "sweetshop/internal/repository"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPGPort = 54329

var testDB *gorm.DB

// embedded postgresが起動できない環境（-short / オフライン）ではDBテストをskipする
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(testPGPort).
		Database("sweetshop_test").
		StartTimeout(60 * time.Second))
	if err := pg.Start(); err != nil {
		log.Printf("embedded postgres unavailable: %v", err)
		os.Exit(m.Run())
	}

	gdb, err := db.Connect(config.Config{
		DatabaseURL: fmt.Sprintf("host=localhost port=%d user=postgres password=postgres dbname=sweetshop_test sslmode=disable", testPGPort),
		GoEnv:       "prod",
	})
	if err == nil {
		err = db.Migrate(gdb)
	}
	if err != nil {
		_ = pg.Stop()
		log.Fatalf("prepare test db: %v", err)
	}
	testDB = gdb

	code := m.Run()
	_ = pg.Stop()
	os.Exit(code)
}

func requireDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres not available")
	}
	require.NoError(t, testDB.Exec("TRUNCATE sweets, users").Error)
	return testDB
}

func seedSweet(t *testing.T, r *infraRepo.SweetGormRepository, name, category, price string, qty int64, at time.Time) model.Sweet {
	t.Helper()
	s, err := r.Create(context.Background(), model.Sweet{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
		CreatedAt: at,
		UpdatedAt: at,
	})
	require.NoError(t, err)
	return s
}

func TestSweetGorm_CreateFindDelete(t *testing.T) {
	r := infraRepo.NewSweetGormRepository(requireDB(t))
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Millisecond)

	created := seedSweet(t, r, "Chocolate Bar", "Chocolate", "2.50", 100, at)

	got, err := r.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chocolate Bar", got.Name)
	assert.True(t, decimal.RequireFromString("2.50").Equal(got.Price))
	assert.Nil(t, got.Description)

	require.NoError(t, r.Delete(ctx, created.ID))
	assert.ErrorIs(t, r.Delete(ctx, created.ID), repo.ErrNotFound)

	_, err = r.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestSweetGorm_ListNewestFirst(t *testing.T) {
	r := infraRepo.NewSweetGormRepository(requireDB(t))
	base := time.Now().UTC().Truncate(time.Millisecond)

	seedSweet(t, r, "Old", "Gummy", "1.00", 1, base.Add(-2*time.Hour))
	seedSweet(t, r, "New", "Gummy", "1.00", 1, base)
	seedSweet(t, r, "Mid", "Gummy", "1.00", 1, base.Add(-time.Hour))

	list, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"New", "Mid", "Old"}, []string{list[0].Name, list[1].Name, list[2].Name})
}

func TestSweetGorm_Search(t *testing.T) {
	r := infraRepo.NewSweetGormRepository(requireDB(t))
	ctx := context.Background()
	at := time.Now().UTC()

	seedSweet(t, r, "Dark Chocolate", "Chocolate", "3.00", 5, at)
	seedSweet(t, r, "Gummy Bears", "Gummy", "1.99", 5, at.Add(time.Second))
	seedSweet(t, r, "100% Cocoa", "Chocolate", "7.50", 5, at.Add(2*time.Second))

	byName, err := r.Search(ctx, repo.SweetSearchQuery{Name: "chocolate"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Dark Chocolate", byName[0].Name)

	// %はワイルドカードではなく文字として扱う
	literal, err := r.Search(ctx, repo.SweetSearchQuery{Name: "0%"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "100% Cocoa", literal[0].Name)

	minP := decimal.RequireFromString("2")
	maxP := decimal.RequireFromString("7.50")
	ranged, err := r.Search(ctx, repo.SweetSearchQuery{Category: "CHOC", MinPrice: &minP, MaxPrice: &maxP})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}

func TestSweetGorm_UpdateLocked_RollsBackOnError(t *testing.T) {
	r := infraRepo.NewSweetGormRepository(requireDB(t))
	ctx := context.Background()
	s := seedSweet(t, r, "Lollipop", "Hard Candy", "0.50", 2, time.Now().UTC())

	_, err := r.UpdateLocked(ctx, s.ID, func(x *model.Sweet) error {
		_, err := stock.Purchase(x, 3, time.Now().UTC())
		return err
	})
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)

	got, err := r.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Quantity)

	_, err = r.UpdateLocked(ctx, uuid.NewString(), func(*model.Sweet) error { return nil })
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestSweetGorm_UpdateLocked_ConcurrentPurchases(t *testing.T) {
	r := infraRepo.NewSweetGormRepository(requireDB(t))
	ctx := context.Background()
	s := seedSweet(t, r, "Toffee", "Caramel", "1.25", 5, time.Now().UTC())

	var (
		wg                sync.WaitGroup
		mu                sync.Mutex
		success, shortage int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.UpdateLocked(ctx, s.ID, func(x *model.Sweet) error {
				_, err := stock.Purchase(x, 1, time.Now().UTC())
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, stock.ErrInsufficientStock):
				shortage++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, success)
	assert.Equal(t, 5, shortage)

	got, err := r.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Quantity)
}

func TestUserGorm_DuplicateAndLookup(t *testing.T) {
	r := infraRepo.NewUserGormRepository(requireDB(t))
	ctx := context.Background()

	u := &model.User{ID: uuid.NewString(), Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, r.Create(ctx, u))

	dup := &model.User{ID: uuid.NewString(), Username: "alice", Email: "other@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, r.Create(ctx, dup), repo.ErrDuplicateUser)

	got, err := r.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = r.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repo.ErrUserNotFound)
}
