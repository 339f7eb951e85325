package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sweetshop/internal/domain/model"
	repo "sweetshop/internal/repository"

	"github.com/hashicorp/go-memdb"
)

type SweetRepository struct {
	db *memdb.MemDB

	// IDごとのロック。memdbの書き込みtxnは全体で1本なので、
	// read-modify-writeの間はこちらで直列化して書き込みは最後に一瞬だけ行う。
	locks idLocks
}

var _ repo.SweetRepository = (*SweetRepository)(nil)

func (r *SweetRepository) Create(ctx context.Context, s model.Sweet) (model.Sweet, error) {
	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableSweet, "id", s.ID)
	if err != nil {
		return model.Sweet{}, fmt.Errorf("storing sweet: %w", err)
	}
	if existing != nil {
		return model.Sweet{}, fmt.Errorf("storing sweet: duplicate id %s", s.ID)
	}
	if err := txn.Insert(tableSweet, s); err != nil {
		return model.Sweet{}, fmt.Errorf("storing sweet: %w", err)
	}
	txn.Commit()
	return s, nil
}

func (r *SweetRepository) FindByID(ctx context.Context, id string) (model.Sweet, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableSweet, "id", id)
	if err != nil {
		return model.Sweet{}, fmt.Errorf("finding sweet: %w", err)
	}
	if raw == nil {
		return model.Sweet{}, repo.ErrNotFound
	}
	return raw.(model.Sweet), nil
}

func (r *SweetRepository) List(ctx context.Context) ([]model.Sweet, error) {
	return r.Search(ctx, repo.SweetSearchQuery{})
}

func (r *SweetRepository) Search(ctx context.Context, q repo.SweetSearchQuery) ([]model.Sweet, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableSweet, "id")
	if err != nil {
		return []model.Sweet{}, fmt.Errorf("listing sweets: %w", err)
	}

	name := strings.ToLower(strings.TrimSpace(q.Name))
	category := strings.ToLower(strings.TrimSpace(q.Category))

	sweets := []model.Sweet{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		s := raw.(model.Sweet)
		if name != "" && !strings.Contains(strings.ToLower(s.Name), name) {
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(s.Category), category) {
			continue
		}
		if q.MinPrice != nil && s.Price.LessThan(*q.MinPrice) {
			continue
		}
		if q.MaxPrice != nil && s.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		sweets = append(sweets, s)
	}

	sort.Slice(sweets, func(i, j int) bool {
		if !sweets[i].CreatedAt.Equal(sweets[j].CreatedAt) {
			return sweets[i].CreatedAt.After(sweets[j].CreatedAt)
		}
		return sweets[i].ID > sweets[j].ID
	})
	return sweets, nil
}

func (r *SweetRepository) UpdateLocked(ctx context.Context, id string, fn repo.SweetMutator) (model.Sweet, error) {
	unlock := r.locks.lock(id)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return model.Sweet{}, err
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return model.Sweet{}, err
	}

	// memdbに入っている値は書き換えない（コピーに対してfnを当てる）
	next := current
	if err := fn(&next); err != nil {
		return model.Sweet{}, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt

	txn := r.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableSweet, next); err != nil {
		return model.Sweet{}, fmt.Errorf("updating sweet: %w", err)
	}
	txn.Commit()
	return next, nil
}

func (r *SweetRepository) Delete(ctx context.Context, id string) error {
	unlock := r.locks.lock(id)
	defer unlock()

	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableSweet, "id", id)
	if err != nil {
		return fmt.Errorf("deleting sweet: %w", err)
	}
	if raw == nil {
		return repo.ErrNotFound
	}
	if err := txn.Delete(tableSweet, raw); err != nil {
		return fmt.Errorf("deleting sweet: %w", err)
	}
	txn.Commit()
	return nil
}
