// Package model はドメインモデルを定義する。
package model

import "time"

// GeoPointType はLocation.Typeに常に設定されるGeoJSON型リテラル。
const GeoPointType = "Point"

// Location は店舗の位置情報を表す。
// TypeにはGeoJSONに合わせて常に"Point"が設定される。
type Location struct {
	Type    string  `json:"type"`
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
	Address string  `json:"address"`
}

// Coordinates はGeoJSON形式の [lng, lat] 座標ペアを返す。
func (l Location) Coordinates() [2]float64 {
	return [2]float64{l.Lng, l.Lat}
}

// Store は店舗を表す。
// Slugは店名から導出され、同一ベースSlugの店舗間では数値サフィックスで
// 一意化される。AuthorIDは作成時に設定され、以後変更されない。
type Store struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Tags        []string
	Location    Location
	Photo       string
	AuthorID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TagCount はタグごとの店舗数を表す。
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// RankedStore はレビュー平均によるランキング結果の1件を表す。
// レビューが2件以上ある店舗のみが対象となる。
type RankedStore struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug"`
	Photo         string  `json:"photo"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// NearbyStore は近傍検索結果の1件を表す。
// 元の一覧表示より絞ったフィールドと、検索地点からの球面距離を持つ。
type NearbyStore struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	Description    string   `json:"description"`
	Photo          string   `json:"photo"`
	Location       Location `json:"location"`
	DistanceMeters float64  `json:"distance_meters"`
}

// ScoredStore は全文検索結果の1件を表す。
// Scoreはテキストインデックスが算出した関連度スコア。
type ScoredStore struct {
	Store Store   `json:"store"`
	Score float64 `json:"score"`
}
