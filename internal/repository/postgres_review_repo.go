package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
)

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// Create はレビューを作成する。
func (r *PostgresReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, store_id, author_id, text, rating, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.StoreID, review.AuthorID, review.Text, review.Rating, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("レビューの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByStoreID は指定店舗のレビュー一覧を作成日時の降順で返す。
// 店舗詳細の表示側が明示的に呼び出す（暗黙のeager loadingは行わない）。
// storeIDはリクエストパス由来のためUUID形式を事前に検証し、
// 不正な形式は空の結果として扱う。
func (r *PostgresReviewRepo) ListByStoreID(ctx context.Context, storeID string) ([]*model.Review, error) {
	if uuid.Validate(storeID) != nil {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, store_id, author_id, text, rating, created_at
		 FROM reviews
		 WHERE store_id = $1
		 ORDER BY created_at DESC, id ASC`,
		storeID,
	)
	if err != nil {
		return nil, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		review := &model.Review{}
		if err := rows.Scan(
			&review.ID, &review.StoreID, &review.AuthorID,
			&review.Text, &review.Rating, &review.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("レビュー行の読み取りに失敗しました: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レビュー一覧の走査に失敗しました: %w", err)
	}

	return reviews, nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
