package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
)

// ErrDuplicateEmail はメールアドレスの一意制約違反を表す。
var ErrDuplicateEmail = errors.New("email address already registered")

// pqUniqueViolation はPostgreSQLのunique_violationエラーコード。
const pqUniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
// Heartsも含めて取得する。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.findOne(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	hearts, err := r.ListHearts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Hearts = hearts

	return user, nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := r.findOne(ctx, `WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによるユーザーの検索に失敗しました: %w", err)
	}
	return user, nil
}

// FindByResetToken は有効期限内のリセットトークンを持つユーザーを取得する。
// 見つからない、または期限切れの場合はnilを返す。
func (r *PostgresUserRepo) FindByResetToken(ctx context.Context, token string) (*model.User, error) {
	user, err := r.findOne(ctx, `WHERE reset_token = $1 AND reset_expires_at > now()`, token)
	if err != nil {
		return nil, fmt.Errorf("リセットトークンによるユーザーの検索に失敗しました: %w", err)
	}
	return user, nil
}

// findOne は条件句付きで1件のユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	user := &model.User{}
	var resetToken sql.NullString
	var resetExpires sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, reset_token, reset_expires_at,
		        created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&resetToken, &resetExpires, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if resetToken.Valid {
		user.ResetToken = resetToken.String
	}
	if resetExpires.Valid {
		t := resetExpires.Time
		user.ResetExpires = &t
	}

	return user, nil
}

// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateEmailを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateAccount はユーザーの表示名とメールアドレスを更新する。
func (r *PostgresUserRepo) UpdateAccount(ctx context.Context, userID, name, email string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, updated_at = now() WHERE id = $1`,
		userID, name, email,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("アカウントの更新に失敗しました: %w", err)
	}
	return nil
}

// SetResetToken はパスワードリセットトークンと期限を設定する。
// 既存のトークンは上書きされる（同時に有効なトークンは1つ）。
func (r *PostgresUserRepo) SetResetToken(ctx context.Context, userID, token string, expires time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = $2, reset_expires_at = $3, updated_at = now()
		 WHERE id = $1`,
		userID, token, expires,
	)
	if err != nil {
		return fmt.Errorf("リセットトークンの設定に失敗しました: %w", err)
	}
	return nil
}

// ResetPassword はパスワードハッシュを更新し、リセットトークンをクリアする。
func (r *PostgresUserRepo) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, reset_token = NULL,
		        reset_expires_at = NULL, updated_at = now()
		 WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("パスワードの更新に失敗しました: %w", err)
	}
	return nil
}

// ListHearts はユーザーのお気に入り店舗IDの一覧を返す。
func (r *PostgresUserRepo) ListHearts(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT store_id FROM user_hearts WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var hearts []string
	for rows.Next() {
		var storeID string
		if err := rows.Scan(&storeID); err != nil {
			return nil, fmt.Errorf("お気に入り行の読み取りに失敗しました: %w", err)
		}
		hearts = append(hearts, storeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}

	return hearts, nil
}

// AddHeart はお気に入りに店舗を追加する。既に存在する場合は何もしない。
func (r *PostgresUserRepo) AddHeart(ctx context.Context, userID, storeID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_hearts (user_id, store_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, store_id) DO NOTHING`,
		userID, storeID,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}
	return nil
}

// RemoveHeart はお気に入りから店舗を削除する。存在しない場合は何もしない。
func (r *PostgresUserRepo) RemoveHeart(ctx context.Context, userID, storeID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_hearts WHERE user_id = $1 AND store_id = $2`,
		userID, storeID,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
