package model

import "time"

// User はサービス利用ユーザーを表す。
// Heartsはお気に入り店舗IDの集合（重複なし）。
// パスワードリセットトークンは同時に1つだけ有効で、
// 使用または期限切れでクリアされる。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	ResetToken   string
	ResetExpires *time.Time
	Hearts       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
