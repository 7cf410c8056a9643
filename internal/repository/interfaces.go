// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
)

// StoreRepository は店舗データの永続化と分析クエリのインターフェース。
// 分析系（TagCounts, TopStores, Near, Search）はすべて読み取り専用で、
// 書き込みと並行に実行してよい（導出結果の鮮度は保証しない）。
type StoreRepository interface {
	// FindByID は指定IDの店舗を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Store, error)

	// FindBySlug は指定Slugの店舗を取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Store, error)

	// Create は店舗を作成する。
	Create(ctx context.Context, store *model.Store) error

	// Update は店舗情報を更新する。AuthorIDは変更しない。
	Update(ctx context.Context, store *model.Store) error

	// List は店舗の一覧を作成日時の降順でoffset/limitページングして返す。
	List(ctx context.Context, offset, limit int) ([]*model.Store, error)

	// Count は店舗の総数を返す。
	Count(ctx context.Context) (int, error)

	// ListByTag は指定タグを持つ店舗の一覧を返す。
	// tagが空の場合はタグを1つ以上持つ全店舗を返す。
	ListByTag(ctx context.Context, tag string) ([]*model.Store, error)

	// ListByIDs は指定IDの店舗一覧を返す。存在しないIDは無視する。
	ListByIDs(ctx context.Context, ids []string) ([]*model.Store, error)

	// MaxSlugSuffix はbaseに対して `^base(-[0-9]+)?$`（大文字小文字無視）に
	// 一致する既存Slugのサフィックスの最大値を返す。ベースそのものは1と
	// 数え、一致が無ければ0を返す。excludeIDが空でない場合はその店舗を除外する。
	MaxSlugSuffix(ctx context.Context, base, excludeID string) (int, error)

	// TagCounts は全店舗をタグごとに集計し、件数降順で返す。
	// 複数タグを持つ店舗は各タグに1ずつ寄与する。
	TagCounts(ctx context.Context) ([]model.TagCount, error)

	// TopStores はレビューが2件以上ある店舗を平均評価の降順で返す。
	// 同率はID昇順で安定化し、limit件に切り詰める。
	TopStores(ctx context.Context, limit int) ([]model.RankedStore, error)

	// Near は指定座標からmaxMetersメートル以内の店舗を近い順に最大limit件返す。
	// 距離は球面距離で算出する。
	Near(ctx context.Context, lng, lat, maxMeters float64, limit int) ([]model.NearbyStore, error)

	// Search は全文検索インデックスに対する関連度検索を行い、
	// スコア降順で結果を返す。
	Search(ctx context.Context, query string) ([]model.ScoredStore, error)
}

// ReviewRepository はレビューデータの永続化インターフェース。
// レビューは作成後の更新・削除を提供しない。
type ReviewRepository interface {
	// Create はレビューを作成する。
	Create(ctx context.Context, review *model.Review) error

	// ListByStoreID は指定店舗のレビュー一覧を作成日時の降順で返す。
	ListByStoreID(ctx context.Context, storeID string) ([]*model.Review, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	// Heartsも含めて取得する。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateAccount はユーザーの表示名とメールアドレスを更新する。
	UpdateAccount(ctx context.Context, userID, name, email string) error

	// SetResetToken はパスワードリセットトークンと期限を設定する。
	// 既存のトークンは上書きされる（同時に有効なトークンは1つ）。
	SetResetToken(ctx context.Context, userID, token string, expires time.Time) error

	// FindByResetToken は有効期限内のリセットトークンを持つユーザーを取得する。
	// 見つからない、または期限切れの場合はnilを返す。
	FindByResetToken(ctx context.Context, token string) (*model.User, error)

	// ResetPassword はパスワードハッシュを更新し、リセットトークンをクリアする。
	ResetPassword(ctx context.Context, userID, passwordHash string) error

	// ListHearts はユーザーのお気に入り店舗IDの一覧を返す。
	ListHearts(ctx context.Context, userID string) ([]string, error)

	// AddHeart はお気に入りに店舗を追加する。既に存在する場合は何もしない。
	AddHeart(ctx context.Context, userID, storeID string) error

	// RemoveHeart はお気に入りから店舗を削除する。存在しない場合は何もしない。
	RemoveHeart(ctx context.Context, userID, storeID string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
