package validator

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	auth "sweetshop/internal/usecase/auth_usecase"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 150
	minPasswordLen = 8
)

type authValidator struct{}

// Usecaseは interface を依存注入
func NewAuthValidator() auth.RegisterValidator {
	return &authValidator{}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(in auth.RegisterUserInput) map[string]string {
	fields := map[string]string{}

	username := strings.TrimSpace(in.Username)
	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		fields["username"] = msgRequired
	case n < minUsernameLen:
		fields["username"] = "Ensure this field has at least 3 characters."
	case n > maxUsernameLen:
		fields["username"] = "Ensure this field has no more than 150 characters."
	}

	// email形式
	email := strings.TrimSpace(in.Email)
	if email == "" {
		fields["email"] = msgRequired
	} else if !isValidEmailFormat(email) {
		fields["email"] = "Enter a valid email address."
	}

	// パスワード最低文字数
	switch {
	case in.Password == "":
		fields["password"] = msgRequired
	case utf8.RuneCountInString(in.Password) < minPasswordLen:
		fields["password"] = "This password is too short. It must contain at least 8 characters."
	case isWeakPassword(in.Password):
		fields["password"] = "This password is too common."
	}

	if in.PasswordConfirm == "" {
		fields["password_confirm"] = msgRequired
	} else if in.Password != in.PasswordConfirm {
		fields["password_confirm"] = "Password fields didn't match."
	}

	return fields
}

// メールチェック（表示名付きは不可）
func isValidEmailFormat(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// よくある弱いパスワード
var weakPasswords = map[string]struct{}{
	"password":     {},
	"password1":    {},
	"password123":  {},
	"12345678":     {},
	"123456789":    {},
	"1234567890":   {},
	"123456789012": {},
	"qwertyui":     {},
	"qwertyuiop":   {},
	"iloveyou":     {},
	"sunshine":     {},
	"letmein1":     {},
	"admin123":     {},
}

func isWeakPassword(password string) bool {
	_, ok := weakPasswords[strings.ToLower(strings.TrimSpace(password))]
	return ok
}
