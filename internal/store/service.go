package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
	"github.com/cleiver/Now-Thats-Delicious/internal/repository"
)

// pageSize は店舗一覧の1ページあたりの件数。
const pageSize = 4

// Sanitizer はユーザー入力テキストのサニタイズに必要なインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// MetricsRecorder は店舗操作のメトリクス記録インターフェース。
// nilの場合は記録しない。
type MetricsRecorder interface {
	RecordStoreCreated()
}

// Draft は店舗作成・更新フォームの入力を表す。
// Photoには保存済みの写真ファイル名を渡す（空の場合は変更しない）。
type Draft struct {
	Name        string
	Description string
	Tags        []string
	Address     string
	Lng         float64
	Lat         float64
	Photo       string
}

// Detail は店舗とそのレビューを明示的に結合した詳細表示用の構造体。
type Detail struct {
	Store   *model.Store
	Reviews []*model.Review
}

// Page は店舗一覧の1ページを表す。
// Pageは実際に返したページ番号で、範囲外が要求された場合は
// 最終ページに丸められる。
type Page struct {
	Stores []*model.Store
	Page   int
	Pages  int
	Total  int
}

// Service は店舗管理のサービス層。
type Service struct {
	stores    repository.StoreRepository
	reviews   repository.ReviewRepository
	sanitizer Sanitizer
	metrics   MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(
	stores repository.StoreRepository,
	reviews repository.ReviewRepository,
	sanitizer Sanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		stores:    stores,
		reviews:   reviews,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// Create は店舗を作成する。
// Slugを割り当て、作成者を設定する。作成者は以後変更されない。
func (s *Service) Create(ctx context.Context, draft Draft, authorID string) (*model.Store, error) {
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	slug, err := AssignSlug(ctx, draft.Name, "", s.stores)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	store := &model.Store{
		ID:          uuid.New().String(),
		Name:        draft.Name,
		Slug:        slug,
		Description: s.sanitize(draft.Description),
		Tags:        normalizeTags(draft.Tags),
		Location: model.Location{
			Type:    model.GeoPointType,
			Lng:     draft.Lng,
			Lat:     draft.Lat,
			Address: draft.Address,
		},
		Photo:     draft.Photo,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.stores.Create(ctx, store); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordStoreCreated()
	}
	slog.Info("store created",
		slog.String("store_id", store.ID),
		slog.String("slug", store.Slug),
		slog.String("author_id", authorID),
	)

	return store, nil
}

// Update は店舗を更新する。作成者本人以外による更新は拒否する。
// 店名が変わった場合のみSlugを再割り当てする（変わらない場合は冪等）。
func (s *Service) Update(ctx context.Context, storeID string, draft Draft, requesterID string) (*model.Store, error) {
	existing, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, model.NewStoreNotFoundError(storeID)
	}
	if existing.AuthorID != requesterID {
		return nil, model.NewNotStoreAuthorError()
	}

	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	if draft.Name != existing.Name {
		slug, err := AssignSlug(ctx, draft.Name, storeID, s.stores)
		if err != nil {
			return nil, err
		}
		existing.Slug = slug
	}

	existing.Name = draft.Name
	existing.Description = s.sanitize(draft.Description)
	existing.Tags = normalizeTags(draft.Tags)
	existing.Location = model.Location{
		Type:    model.GeoPointType,
		Lng:     draft.Lng,
		Lat:     draft.Lat,
		Address: draft.Address,
	}
	if draft.Photo != "" {
		existing.Photo = draft.Photo
	}
	existing.UpdatedAt = time.Now()

	if err := s.stores.Update(ctx, existing); err != nil {
		return nil, err
	}

	return existing, nil
}

// GetBySlug は店舗詳細をレビュー付きで返す。見つからない場合はnilを返す。
// レビューの結合は呼び出し側が明示的に要求した場合のみ行われる設計で、
// この詳細表示がその唯一の呼び出し元。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Detail, error) {
	store, err := s.stores.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, nil
	}

	reviews, err := s.reviews.ListByStoreID(ctx, store.ID)
	if err != nil {
		return nil, err
	}

	return &Detail{Store: store, Reviews: reviews}, nil
}

// GetForEdit は編集フォーム用に店舗を返す。
// 作成者本人以外からの要求は拒否する。
func (s *Service) GetForEdit(ctx context.Context, storeID, requesterID string) (*model.Store, error) {
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, model.NewStoreNotFoundError(storeID)
	}
	if store.AuthorID != requesterID {
		return nil, model.NewNotStoreAuthorError()
	}
	return store, nil
}

// List は店舗一覧の1ページを返す。
// 最終ページを超えるページが要求された場合は空の結果を返す代わりに
// 最終ページへ丸めて返す。
func (s *Service) List(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.stores.Count(ctx)
	if err != nil {
		return nil, err
	}

	pages := (total + pageSize - 1) / pageSize
	if pages == 0 {
		return &Page{Stores: nil, Page: 1, Pages: 0, Total: 0}, nil
	}
	if page > pages {
		slog.Info("requested page beyond last page, clamping",
			slog.Int("requested", page),
			slog.Int("last", pages),
		)
		page = pages
	}

	stores, err := s.stores.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	return &Page{Stores: stores, Page: page, Pages: pages, Total: total}, nil
}

// ListByTag は指定タグを持つ店舗の一覧を返す。tagが空の場合は
// タグを1つ以上持つ全店舗を返す。
func (s *Service) ListByTag(ctx context.Context, tag string) ([]*model.Store, error) {
	return s.stores.ListByTag(ctx, tag)
}

// sanitize はサニタイザが設定されている場合にテキストをサニタイズする。
func (s *Service) sanitize(text string) string {
	if s.sanitizer == nil {
		return text
	}
	return s.sanitizer.Sanitize(text)
}

// validateDraft はフォーム入力を検証し、正規化する。
// 検証エラーはユーザー向けメッセージとしてまとめて返す。
func validateDraft(draft *Draft) error {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Address = strings.TrimSpace(draft.Address)

	var messages []string
	if draft.Name == "" {
		messages = append(messages, "店舗名を入力してください。")
	}
	if draft.Address == "" {
		messages = append(messages, "住所を入力してください。")
	}
	if draft.Lng < -180 || draft.Lng > 180 {
		messages = append(messages, fmt.Sprintf("経度が範囲外です: %v", draft.Lng))
	}
	if draft.Lat < -90 || draft.Lat > 90 {
		messages = append(messages, fmt.Sprintf("緯度が範囲外です: %v", draft.Lat))
	}

	if len(messages) > 0 {
		return model.NewValidationError(messages...)
	}
	return nil
}

// normalizeTags はタグの空白を除去し、空要素を捨て、
// 並び順を保ったまま重複を取り除く。
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var normalized []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		normalized = append(normalized, tag)
	}
	return normalized
}
