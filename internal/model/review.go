package model

import "time"

// レビュー評価の下限と上限。
const (
	RatingMin = 1
	RatingMax = 5
)

// Review は店舗へのレビューを表す。
// 店舗・ユーザーへの参照のみを持ち、作成後は変更されない。
type Review struct {
	ID        string
	StoreID   string
	AuthorID  string
	Text      string
	Rating    int
	CreatedAt time.Time
}
