package repository

import (
	"context"
	"errors"
	"strings"

	"sweetshop/internal/domain/model"
	repo "sweetshop/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SweetGormRepository struct {
	db *gorm.DB
}

// DI
func NewSweetGormRepository(db *gorm.DB) *SweetGormRepository {
	return &SweetGormRepository{db: db}
}

var _ repo.SweetRepository = (*SweetGormRepository)(nil)

// 商品の作成
func (r *SweetGormRepository) Create(ctx context.Context, s model.Sweet) (model.Sweet, error) {
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.Sweet{}, err
	}
	return s, nil
}

// IDで商品を取得
func (r *SweetGormRepository) FindByID(ctx context.Context, id string) (model.Sweet, error) {
	var s model.Sweet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Sweet{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Sweet{}, err
	}
	return s, nil
}

// 新しい順で全件
func (r *SweetGormRepository) List(ctx context.Context) ([]model.Sweet, error) {
	var sweets []model.Sweet
	err := r.db.WithContext(ctx).
		Order("created_at desc").Order("id desc").
		Find(&sweets).Error
	if err != nil {
		return []model.Sweet{}, err
	}
	return sweets, nil
}

// name/categoryは部分一致（大文字小文字無視）、価格帯は両端含む
func (r *SweetGormRepository) Search(ctx context.Context, q repo.SweetSearchQuery) ([]model.Sweet, error) {
	tx := r.db.WithContext(ctx).Model(&model.Sweet{})

	if name := strings.TrimSpace(q.Name); name != "" {
		tx = tx.Where("name ILIKE ?", "%"+escapeLike(name)+"%")
	}
	if category := strings.TrimSpace(q.Category); category != "" {
		tx = tx.Where("category ILIKE ?", "%"+escapeLike(category)+"%")
	}

	//価格帯
	if q.MinPrice != nil {
		tx = tx.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("price <= ?", *q.MaxPrice)
	}

	var sweets []model.Sweet
	if err := tx.Order("created_at desc").Order("id desc").Find(&sweets).Error; err != nil {
		return []model.Sweet{}, err
	}
	return sweets, nil
}

// 行ロック（SELECT ... FOR UPDATE）を取ってから書き換える。
// fnがエラーならrollbackされる。
func (r *SweetGormRepository) UpdateLocked(ctx context.Context, id string, fn repo.SweetMutator) (model.Sweet, error) {
	var out model.Sweet

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s model.Sweet
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&s).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repo.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := fn(&s); err != nil {
			return err
		}

		// IDと作成時刻は変えさせない
		res := tx.Model(&model.Sweet{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":        s.Name,
			"category":    s.Category,
			"price":       s.Price,
			"quantity":    s.Quantity,
			"description": s.Description,
			"updated_at":  s.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		s.ID = id
		out = s
		return nil
	})
	if err != nil {
		return model.Sweet{}, err
	}
	return out, nil
}

// 商品削除（物理削除）
func (r *SweetGormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Sweet{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// LIKEのワイルドカードを文字として扱う
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
