package auth

import (
	"context"
	"errors"
	"strings"

	"sweetshop/internal/domain/model"
	"sweetshop/internal/repository"
	"sweetshop/internal/usecase"
)

// 会員登録の入力
type RegisterUserInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// 登録・ログインの出力
type AuthOutput struct {
	User   model.User
	Tokens Tokens
}

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力チェックの約束（問題なければ空map）
type RegisterValidator interface {
	ValidateRegister(in RegisterUserInput) map[string]string
}

// RegisterUserUsecaseは会員登録の処理。
type RegisterUserUsecase struct {
	userRepo  repository.UserRepository
	validator RegisterValidator
	hasher    PasswordHasher
	issuer    AccessTokenIssuer
	idGen     usecase.IDGenerator
	clock     usecase.Clock
}

// DI
func NewRegisterUserUsecase(
	userRepo repository.UserRepository,
	validator RegisterValidator,
	hasher PasswordHasher,
	issuer AccessTokenIssuer,
	idGen usecase.IDGenerator,
	clock usecase.Clock,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		userRepo:  userRepo,
		validator: validator,
		hasher:    hasher,
		issuer:    issuer,
		idGen:     idGen,
		clock:     clock,
	}
}

// 会員登録実行（一般ユーザーとして作る）
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (AuthOutput, error) {
	var out AuthOutput

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if fields := u.validator.ValidateRegister(in); len(fields) > 0 {
		return out, usecase.NewValidationError(fields)
	}

	user, err := u.create(ctx, in.Username, in.Email, in.Password, false)
	if err != nil {
		return out, err
	}

	tokens, err := issueTokens(u.issuer, *user, u.clock.Now())
	if err != nil {
		return out, err
	}

	out.User = safeUser(*user)
	out.Tokens = tokens
	return out, nil
}

// EnsureAdmin は起動時に管理者を用意する。既にいれば何もしない。
func (u *RegisterUserUsecase) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, errors.New("admin username and password are required")
	}

	_, err := u.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return false, err
	}

	if email == "" {
		email = username + "@localhost"
	}
	if _, err := u.create(ctx, username, strings.TrimSpace(email), password, true); err != nil {
		return false, err
	}
	return true, nil
}

func (u *RegisterUserUsecase) create(ctx context.Context, username, email, password string, isAdmin bool) (*model.User, error) {
	// パスワードをハッシュ化
	hashed, err := u.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := u.clock.Now()
	user := &model.User{
		ID:           u.idGen.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: hashed, // 平文は保存しない
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// DBへ保存（一意制約で重複を検出）
	if err := u.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, usecase.NewError(usecase.KindConflict, "A user with that username or email already exists.")
		}
		return nil, &usecase.Error{Kind: usecase.KindUnavailable, Message: "Service temporarily unavailable, please retry.", Err: err}
	}
	return user, nil
}

// 返すときは password を空にして漏洩防止
func safeUser(u model.User) model.User {
	u.PasswordHash = ""
	return u
}
