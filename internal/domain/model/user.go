package model

import "time"

type User struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Username     string `gorm:"type:varchar(150);uniqueIndex;not null"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ログイン中のユーザーから作る操作主体
func (u User) Principal() Principal {
	return Principal{ID: u.ID, IsAdmin: u.IsAdmin}
}
