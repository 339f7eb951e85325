package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sweetshop/internal/domain/model"
	"sweetshop/internal/domain/policy"
	"sweetshop/internal/domain/stock"
	repo "sweetshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxIdempotencyKeyLen = 255

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// 作成/更新の入力。nilは「送られていない」。
type SweetFields struct {
	Name        *string
	Category    *string
	Price       *decimal.Decimal
	Quantity    *int64
	Description *string
	// descriptionがnullで送られた場合と未送信を区別する
	HasDescription bool
}

// usecaseがValidatorInterfaceに依存する約束
type SweetValidator interface {
	// partial=falseのとき name/category/price/quantity は必須。
	// 問題がなければ空のmapを返す。
	ValidateSweet(f SweetFields, partial bool) map[string]string
}

// GET /sweets/search のクエリ（未加工の文字列のまま受け取る）
type SearchInput struct {
	Name     string
	Category string
	MinPrice string
	MaxPrice string
}

type PurchaseOutput struct {
	Message           string
	RemainingQuantity int64
	Sweet             model.Sweet
}

type RestockOutput struct {
	Message     string
	NewQuantity int64
	Sweet       model.Sweet
}

type SweetUsecase struct {
	sweets    repo.SweetRepository
	idem      repo.IdempotencyStore
	validator SweetValidator
	idGen     IDGenerator
	clock     Clock
	log       *zap.Logger
}

// DI
func NewSweetUsecase(
	sweets repo.SweetRepository,
	idem repo.IdempotencyStore,
	validator SweetValidator,
	idGen IDGenerator,
	clock Clock,
	log *zap.Logger,
) *SweetUsecase {
	return &SweetUsecase{
		sweets:    sweets,
		idem:      idem,
		validator: validator,
		idGen:     idGen,
		clock:     clock,
		log:       log,
	}
}

// Authorize は操作を許可するかをpolicyで判定し、拒否ならErrorを返す
func Authorize(op policy.Operation, p model.Principal) error {
	switch policy.Decide(op, p) {
	case policy.Allow:
		return nil
	case policy.DenyUnauthenticated:
		return NewError(KindUnauthenticated, "Authentication credentials were not provided.")
	default:
		return NewError(KindForbidden, "You do not have permission to perform this action.")
	}
}

func (u *SweetUsecase) List(ctx context.Context, p model.Principal) ([]model.Sweet, error) {
	if err := Authorize(policy.OpList, p); err != nil {
		return nil, err
	}

	sweets, err := u.sweets.List(ctx)
	if err != nil {
		return nil, u.storeError(policy.OpList, "", err)
	}
	return sweets, nil
}

func (u *SweetUsecase) Search(ctx context.Context, p model.Principal, in SearchInput) ([]model.Sweet, error) {
	if err := Authorize(policy.OpSearch, p); err != nil {
		return nil, err
	}

	minPrice, err := parsePriceFilter(in.MinPrice, "min_price")
	if err != nil {
		return nil, err
	}
	maxPrice, err := parsePriceFilter(in.MaxPrice, "max_price")
	if err != nil {
		return nil, err
	}

	sweets, err := u.sweets.Search(ctx, repo.SweetSearchQuery{
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	})
	if err != nil {
		return nil, u.storeError(policy.OpSearch, "", err)
	}
	return sweets, nil
}

func (u *SweetUsecase) Get(ctx context.Context, p model.Principal, id string) (model.Sweet, error) {
	if err := Authorize(policy.OpRead, p); err != nil {
		return model.Sweet{}, err
	}
	id, err := normalizeSweetID(id)
	if err != nil {
		return model.Sweet{}, err
	}

	s, err := u.sweets.FindByID(ctx, id)
	if err != nil {
		return model.Sweet{}, u.storeError(policy.OpRead, id, err)
	}
	return s, nil
}

func (u *SweetUsecase) Create(ctx context.Context, p model.Principal, f SweetFields) (model.Sweet, error) {
	if err := Authorize(policy.OpCreate, p); err != nil {
		return model.Sweet{}, err
	}
	if fields := u.validator.ValidateSweet(f, false); len(fields) > 0 {
		return model.Sweet{}, NewValidationError(fields)
	}

	now := u.clock.Now()
	s := model.Sweet{
		ID:        u.idGen.NewID(),
		CreatedAt: now,
	}
	applyFields(&s, f, now)

	created, err := u.sweets.Create(ctx, s)
	if err != nil {
		return model.Sweet{}, u.storeError(policy.OpCreate, s.ID, err)
	}

	u.log.Info("sweet created",
		zap.String("sweet_id", created.ID),
		zap.String("name", created.Name),
		zap.Int64("quantity", created.Quantity),
		zap.String("actor", p.ID))
	return created, nil
}

// Update は全項目の更新（PUT）
func (u *SweetUsecase) Update(ctx context.Context, p model.Principal, id string, f SweetFields) (model.Sweet, error) {
	return u.update(ctx, policy.OpUpdate, p, id, f, false)
}

// Patch は送られた項目だけ更新（PATCH）
func (u *SweetUsecase) Patch(ctx context.Context, p model.Principal, id string, f SweetFields) (model.Sweet, error) {
	return u.update(ctx, policy.OpPartialUpdate, p, id, f, true)
}

func (u *SweetUsecase) update(ctx context.Context, op policy.Operation, p model.Principal, id string, f SweetFields, partial bool) (model.Sweet, error) {
	if err := Authorize(op, p); err != nil {
		return model.Sweet{}, err
	}
	id, err := normalizeSweetID(id)
	if err != nil {
		return model.Sweet{}, err
	}

	// 存在確認（404）を入力エラー（400）より先にするため、検証はロック内で行う
	updated, err := u.sweets.UpdateLocked(ctx, id, func(s *model.Sweet) error {
		if fields := u.validator.ValidateSweet(f, partial); len(fields) > 0 {
			return NewValidationError(fields)
		}
		applyFields(s, f, u.clock.Now())
		return nil
	})
	if err != nil {
		return model.Sweet{}, u.storeError(op, id, err)
	}
	return updated, nil
}

func (u *SweetUsecase) Delete(ctx context.Context, p model.Principal, id string) error {
	if err := Authorize(policy.OpDelete, p); err != nil {
		return err
	}
	id, err := normalizeSweetID(id)
	if err != nil {
		return err
	}

	if err := u.sweets.Delete(ctx, id); err != nil {
		return u.storeError(policy.OpDelete, id, err)
	}

	u.log.Info("sweet deleted", zap.String("sweet_id", id), zap.String("actor", p.ID))
	return nil
}

// Purchase は在庫を減らす。idempotencyKeyが空でなければ同じキーの2回目を弾く。
func (u *SweetUsecase) Purchase(ctx context.Context, p model.Principal, id string, amount int64, idempotencyKey string) (PurchaseOutput, error) {
	if err := Authorize(policy.OpPurchase, p); err != nil {
		return PurchaseOutput{}, err
	}
	id, err := normalizeSweetID(id)
	if err != nil {
		return PurchaseOutput{}, err
	}

	key := strings.TrimSpace(idempotencyKey)
	claimed := ""
	if key != "" {
		if len(key) > maxIdempotencyKeyLen {
			return PurchaseOutput{}, NewValidationError(map[string]string{"Idempotency-Key": "Ensure this value has at most 255 characters."})
		}
		claimKey := fmt.Sprintf("purchase:%s:%s:%s", p.ID, id, key)
		ok, err := u.idem.Claim(ctx, claimKey)
		if err != nil {
			return PurchaseOutput{}, u.storeError(policy.OpPurchase, id, err)
		}
		if !ok {
			return PurchaseOutput{}, NewError(KindDuplicateRequest, "A purchase with this Idempotency-Key was already processed.")
		}
		claimed = claimKey
	}

	s, err := u.sweets.UpdateLocked(ctx, id, func(s *model.Sweet) error {
		_, err := stock.Purchase(s, amount, u.clock.Now())
		return err
	})
	if err != nil {
		if claimed != "" {
			// 失敗したらキーを戻してリトライできるようにする
			if rerr := u.idem.Release(ctx, claimed); rerr != nil {
				u.log.Warn("release idempotency key", zap.String("sweet_id", id), zap.Error(rerr))
			}
		}
		if serr := stockError(err, "Purchase amount must be positive"); serr != nil {
			return PurchaseOutput{}, serr
		}
		return PurchaseOutput{}, u.storeError(policy.OpPurchase, id, err)
	}

	u.log.Info("sweet purchased",
		zap.String("sweet_id", id),
		zap.Int64("amount", amount),
		zap.Int64("remaining_quantity", s.Quantity),
		zap.String("actor", p.ID))

	return PurchaseOutput{
		Message:           fmt.Sprintf("Successfully purchased %d %s(s)", amount, s.Name),
		RemainingQuantity: s.Quantity,
		Sweet:             s,
	}, nil
}

func (u *SweetUsecase) Restock(ctx context.Context, p model.Principal, id string, amount int64) (RestockOutput, error) {
	if err := Authorize(policy.OpRestock, p); err != nil {
		return RestockOutput{}, err
	}
	id, err := normalizeSweetID(id)
	if err != nil {
		return RestockOutput{}, err
	}

	s, err := u.sweets.UpdateLocked(ctx, id, func(s *model.Sweet) error {
		_, err := stock.Restock(s, amount, u.clock.Now())
		return err
	})
	if err != nil {
		if serr := stockError(err, "Restock amount must be positive"); serr != nil {
			return RestockOutput{}, serr
		}
		return RestockOutput{}, u.storeError(policy.OpRestock, id, err)
	}

	u.log.Info("sweet restocked",
		zap.String("sweet_id", id),
		zap.Int64("amount", amount),
		zap.Int64("new_quantity", s.Quantity),
		zap.String("actor", p.ID))

	return RestockOutput{
		Message:     fmt.Sprintf("Successfully restocked %d %s(s)", amount, s.Name),
		NewQuantity: s.Quantity,
		Sweet:       s,
	}, nil
}

// 送られてきた項目だけを反映する
func applyFields(s *model.Sweet, f SweetFields, now time.Time) {
	if f.Name != nil {
		s.Name = strings.TrimSpace(*f.Name)
	}
	if f.Category != nil {
		s.Category = strings.TrimSpace(*f.Category)
	}
	if f.Price != nil {
		s.Price = *f.Price
	}
	if f.Quantity != nil {
		s.Quantity = *f.Quantity
	}
	if f.HasDescription {
		s.Description = f.Description
	}
	s.UpdatedAt = now
}

func parsePriceFilter(raw string, name string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, NewError(KindInvalidFilter, fmt.Sprintf("Invalid %s value", name))
	}
	return &d, nil
}

func stockError(err error, invalidAmountMsg string) error {
	var ise *stock.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		return &Error{Kind: KindInsufficientStock, Message: ise.Error(), Err: err}
	case errors.Is(err, stock.ErrAmountTooLarge):
		return &Error{Kind: KindInvalidAmount, Message: "Amount is too large", Err: err}
	case errors.Is(err, stock.ErrInvalidAmount):
		return &Error{Kind: KindInvalidAmount, Message: invalidAmountMsg, Err: err}
	}
	return nil
}

func (u *SweetUsecase) storeError(op policy.Operation, id string, err error) error {
	if ue, ok := AsError(err); ok {
		return ue
	}
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound()
	}

	u.log.Error("sweet store failure",
		zap.String("op", string(op)),
		zap.String("sweet_id", id),
		zap.Error(err))
	return &Error{Kind: KindUnavailable, Message: "Service temporarily unavailable, please retry.", Err: err}
}

func errNotFound() error {
	return NewError(KindNotFound, "Not found.")
}

// IDを小文字ハイフン区切りの形にそろえる。
// UUID以外のIDはDBに問い合わせるまでもなく存在しない。
func normalizeSweetID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", errNotFound()
	}
	return parsed.String(), nil
}
