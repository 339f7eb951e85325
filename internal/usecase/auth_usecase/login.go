package auth

import (
	"context"
	"errors"
	"strings"

	"sweetshop/internal/repository"
	"sweetshop/internal/usecase"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Username string
	Password string
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

type LoginUsecase struct {
	userRepo repository.UserRepository
	verifier PasswordVerifier
	issuer   AccessTokenIssuer
	clock    usecase.Clock
}

func NewLoginUsecase(
	userRepo repository.UserRepository,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	clock usecase.Clock,
) *LoginUsecase {
	return &LoginUsecase{
		userRepo: userRepo,
		verifier: verifier,
		issuer:   issuer,
		clock:    clock,
	}
}

func errInvalidCredentials() error {
	return usecase.NewError(usecase.KindUnauthenticated, "Invalid credentials")
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (AuthOutput, error) {
	var out AuthOutput

	//必須チェック
	username := strings.TrimSpace(in.Username)
	fields := map[string]string{}
	if username == "" {
		fields["username"] = "This field is required."
	}
	if in.Password == "" {
		fields["password"] = "This field is required."
	}
	if len(fields) > 0 {
		return out, usecase.NewValidationError(fields)
	}

	//usernameでユーザー取得
	user, err := u.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return out, errInvalidCredentials()
		}
		return out, &usecase.Error{Kind: usecase.KindUnavailable, Message: "Service temporarily unavailable, please retry.", Err: err}
	}

	//パスワード照合
	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		return out, errInvalidCredentials()
	}

	//AccessToken発行
	tokens, err := issueTokens(u.issuer, *user, u.clock.Now())
	if err != nil {
		return out, err
	}

	out.User = safeUser(*user)
	out.Tokens = tokens
	return out, nil
}
