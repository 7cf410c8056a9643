package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
)

// storeColumns は店舗取得クエリで共通に使用するカラムリスト。
const storeColumns = `id, name, slug, description, tags, lng, lat, address, photo, author_id, created_at, updated_at`

// PostgresStoreRepo はPostgreSQLを使用した店舗リポジトリ。
// 全文検索はname+descriptionに対するGINインデックス、
// 近傍検索はll_to_earthに対するGiSTインデックスを前提とする
// （マイグレーションで作成される）。
type PostgresStoreRepo struct {
	db *sql.DB
}

// NewPostgresStoreRepo はPostgresStoreRepoを生成する。
func NewPostgresStoreRepo(db *sql.DB) *PostgresStoreRepo {
	return &PostgresStoreRepo{db: db}
}

// scanStore は1行分の店舗カラムをmodel.Storeに読み取る。
func scanStore(scan func(dest ...any) error) (*model.Store, error) {
	store := &model.Store{}
	var tags pq.StringArray

	err := scan(
		&store.ID, &store.Name, &store.Slug, &store.Description, &tags,
		&store.Location.Lng, &store.Location.Lat, &store.Location.Address,
		&store.Photo, &store.AuthorID, &store.CreatedAt, &store.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	store.Tags = []string(tags)
	store.Location.Type = model.GeoPointType
	return store, nil
}

// FindByID は指定IDの店舗を取得する。見つからない場合はnilを返す。
// idはリクエストパス由来のためUUID形式を事前に検証する
// （不正な形式をuuidカラムと比較するとPostgreSQLが構文エラーを返す）。
func (r *PostgresStoreRepo) FindByID(ctx context.Context, id string) (*model.Store, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE id = $1`,
		id,
	)
	store, err := scanStore(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("店舗の取得に失敗しました: %w", err)
	}
	return store, nil
}

// FindBySlug は指定Slugの店舗を取得する。見つからない場合はnilを返す。
func (r *PostgresStoreRepo) FindBySlug(ctx context.Context, slug string) (*model.Store, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE slug = $1`,
		slug,
	)
	store, err := scanStore(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Slugによる店舗の検索に失敗しました: %w", err)
	}
	return store, nil
}

// Create は店舗を作成する。
func (r *PostgresStoreRepo) Create(ctx context.Context, store *model.Store) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stores (id, name, slug, description, tags, lng, lat, address,
		                     photo, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		store.ID, store.Name, store.Slug, store.Description, pq.Array(store.Tags),
		store.Location.Lng, store.Location.Lat, store.Location.Address,
		store.Photo, store.AuthorID, store.CreatedAt, store.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("店舗の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は店舗情報を更新する。AuthorIDは変更しない。
func (r *PostgresStoreRepo) Update(ctx context.Context, store *model.Store) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE stores SET
		    name = $2, slug = $3, description = $4, tags = $5,
		    lng = $6, lat = $7, address = $8, photo = $9, updated_at = $10
		 WHERE id = $1`,
		store.ID, store.Name, store.Slug, store.Description, pq.Array(store.Tags),
		store.Location.Lng, store.Location.Lat, store.Location.Address,
		store.Photo, store.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("店舗の更新に失敗しました: %w", err)
	}
	return nil
}

// List は店舗の一覧を作成日時の降順でoffset/limitページングして返す。
func (r *PostgresStoreRepo) List(ctx context.Context, offset, limit int) ([]*model.Store, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storeColumns+` FROM stores
		 ORDER BY created_at DESC, id ASC
		 OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("店舗一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectStores(rows)
}

// Count は店舗の総数を返す。
func (r *PostgresStoreRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM stores`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("店舗数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// ListByTag は指定タグを持つ店舗の一覧を返す。
// tagが空の場合はタグを1つ以上持つ全店舗を返す。
func (r *PostgresStoreRepo) ListByTag(ctx context.Context, tag string) ([]*model.Store, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if tag == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+storeColumns+` FROM stores
			 WHERE cardinality(tags) > 0
			 ORDER BY created_at DESC, id ASC`,
		)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+storeColumns+` FROM stores
			 WHERE $1 = ANY(tags)
			 ORDER BY created_at DESC, id ASC`,
			tag,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("タグによる店舗一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectStores(rows)
}

// ListByIDs は指定IDの店舗一覧を返す。存在しないIDは無視する。
func (r *PostgresStoreRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Store, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storeColumns+` FROM stores
		 WHERE id = ANY($1)
		 ORDER BY created_at DESC, id ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("IDによる店舗一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectStores(rows)
}

// MaxSlugSuffix はbaseに対して `^base(-[0-9]+)?$`（大文字小文字無視）に
// 一致する既存Slugのサフィックスの最大値を返す。ベースそのものは1と数え、
// 一致が無ければ0を返す。excludeIDが空でない場合はその店舗を除外する。
// 件数ではなく最大値を走査するため、改名で列に歯抜けがあっても
// 次のSlugが既存のものと衝突することはない（slugのUNIQUE制約と整合する）。
// baseはslugify済み（[a-z0-9-]のみ）である前提で、正規表現エスケープは行わない。
func (r *PostgresStoreRepo) MaxSlugSuffix(ctx context.Context, base, excludeID string) (int, error) {
	pattern := "^" + base + "(-[0-9]+)?$"

	var exclude any
	if excludeID != "" {
		exclude = excludeID
	}

	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT coalesce(max(
		            CASE WHEN lower(slug) = $1 THEN 1
		                 ELSE (substring(slug from '-([0-9]+)$'))::int
		            END), 0)
		 FROM stores
		 WHERE slug ~* $2 AND ($3::uuid IS NULL OR id <> $3::uuid)`,
		base, pattern, exclude,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("Slugサフィックス最大値の取得に失敗しました: %w", err)
	}
	return max, nil
}

// TagCounts は全店舗をタグごとに集計し、件数降順で返す。
// パイプライン: unnest（展開）→ GROUP BY（集計）→ ORDER BY（整列）。
// 同数のタグはタグ名昇順で安定化する。
func (r *PostgresStoreRepo) TagCounts(ctx context.Context) ([]model.TagCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.tag, count(*) AS count
		 FROM stores s, unnest(s.tags) AS t(tag)
		 GROUP BY t.tag
		 ORDER BY count DESC, t.tag ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("タグ集計の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var counts []model.TagCount
	for rows.Next() {
		var tc model.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("タグ集計の読み取りに失敗しました: %w", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タグ集計の走査に失敗しました: %w", err)
	}

	return counts, nil
}

// TopStores はレビューが2件以上ある店舗を平均評価の降順で返す。
// パイプライン: JOIN（レビュー結合）→ GROUP BY（平均算出）→
// HAVING（2件未満を除外）→ ORDER BY → LIMIT。
// 同率平均はID昇順で決定的に並ぶ。
func (r *PostgresStoreRepo) TopStores(ctx context.Context, limit int) ([]model.RankedStore, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.slug, s.photo,
		        avg(r.rating)::float8 AS average_rating,
		        count(r.id) AS review_count
		 FROM stores s
		 INNER JOIN reviews r ON r.store_id = s.id
		 GROUP BY s.id, s.name, s.slug, s.photo
		 HAVING count(r.id) > 1
		 ORDER BY average_rating DESC, s.id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("トップ店舗の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ranked []model.RankedStore
	for rows.Next() {
		var rs model.RankedStore
		if err := rows.Scan(&rs.ID, &rs.Name, &rs.Slug, &rs.Photo, &rs.AverageRating, &rs.ReviewCount); err != nil {
			return nil, fmt.Errorf("トップ店舗の読み取りに失敗しました: %w", err)
		}
		ranked = append(ranked, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("トップ店舗の走査に失敗しました: %w", err)
	}

	return ranked, nil
}

// Near は指定座標からmaxMetersメートル以内の店舗を近い順に最大limit件返す。
// earth_boxでGiSTインデックスを使って絞り込み、earth_distanceの
// 球面距離で正確なカットオフと並び順を決める。
func (r *PostgresStoreRepo) Near(ctx context.Context, lng, lat, maxMeters float64, limit int) ([]model.NearbyStore, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, description, photo, lng, lat, address,
		        earth_distance(ll_to_earth(lat, lng), ll_to_earth($2, $1)) AS distance
		 FROM stores
		 WHERE earth_box(ll_to_earth($2, $1), $3) @> ll_to_earth(lat, lng)
		   AND earth_distance(ll_to_earth(lat, lng), ll_to_earth($2, $1)) <= $3
		 ORDER BY distance ASC, id ASC
		 LIMIT $4`,
		lng, lat, maxMeters, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("近傍店舗の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var nearby []model.NearbyStore
	for rows.Next() {
		var ns model.NearbyStore
		if err := rows.Scan(
			&ns.ID, &ns.Name, &ns.Slug, &ns.Description, &ns.Photo,
			&ns.Location.Lng, &ns.Location.Lat, &ns.Location.Address,
			&ns.DistanceMeters,
		); err != nil {
			return nil, fmt.Errorf("近傍店舗の読み取りに失敗しました: %w", err)
		}
		ns.Location.Type = model.GeoPointType
		nearby = append(nearby, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("近傍店舗の走査に失敗しました: %w", err)
	}

	return nearby, nil
}

// Search は全文検索インデックスに対する関連度検索を行い、スコア降順で結果を返す。
// to_tsvectorの式はマイグレーションのGINインデックス定義と一致させること。
func (r *PostgresStoreRepo) Search(ctx context.Context, query string) ([]model.ScoredStore, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storeColumns+`,
		        ts_rank(to_tsvector('english', name || ' ' || description),
		                plainto_tsquery('english', $1)) AS score
		 FROM stores
		 WHERE to_tsvector('english', name || ' ' || description)
		       @@ plainto_tsquery('english', $1)
		 ORDER BY score DESC, id ASC`,
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("全文検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var scored []model.ScoredStore
	for rows.Next() {
		var ss model.ScoredStore
		var tags pq.StringArray
		if err := rows.Scan(
			&ss.Store.ID, &ss.Store.Name, &ss.Store.Slug, &ss.Store.Description, &tags,
			&ss.Store.Location.Lng, &ss.Store.Location.Lat, &ss.Store.Location.Address,
			&ss.Store.Photo, &ss.Store.AuthorID, &ss.Store.CreatedAt, &ss.Store.UpdatedAt,
			&ss.Score,
		); err != nil {
			return nil, fmt.Errorf("全文検索結果の読み取りに失敗しました: %w", err)
		}
		ss.Store.Tags = []string(tags)
		ss.Store.Location.Type = model.GeoPointType
		scored = append(scored, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("全文検索結果の走査に失敗しました: %w", err)
	}

	return scored, nil
}

// collectStores はrowsから店舗のスライスを読み取る。
func collectStores(rows *sql.Rows) ([]*model.Store, error) {
	var stores []*model.Store
	for rows.Next() {
		store, err := scanStore(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("店舗行の読み取りに失敗しました: %w", err)
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("店舗一覧の走査に失敗しました: %w", err)
	}
	return stores, nil
}

// compile-time interface check
var _ StoreRepository = (*PostgresStoreRepo)(nil)
