// Package review は店舗レビューのドメインロジックを提供する。
// レビューは作成後の更新・削除を提供しない（追記専用）。
package review

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

// Sanitizer はレビュー本文のサニタイズに必要なインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// MetricsRecorder はレビュー作成のメトリクス記録インターフェース。
// nilの場合は記録しない。
type MetricsRecorder interface {
	RecordReviewCreated()
}

// Service はレビューのサービス層。
type Service struct {
	reviews   repository.ReviewRepository
	stores    repository.StoreRepository
	sanitizer Sanitizer
	metrics   MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(
	reviews repository.ReviewRepository,
	stores repository.StoreRepository,
	sanitizer Sanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		reviews:   reviews,
		stores:    stores,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// Add は店舗にレビューを追加する。
// 店舗が存在しない場合はSTORE_NOT_FOUND、評価が1〜5の範囲外、
// または本文が空の場合はVALIDATION_FAILEDを返す。
func (s *Service) Add(ctx context.Context, storeID, authorID, text string, rating int) (*model.Review, error) {
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, model.NewStoreNotFoundError(storeID)
	}

	text = strings.TrimSpace(text)

	var messages []string
	if text == "" {
		messages = append(messages, "レビュー本文を入力してください。")
	}
	if rating < model.RatingMin || rating > model.RatingMax {
		messages = append(messages, fmt.Sprintf("評価は%dから%dの範囲で指定してください。", model.RatingMin, model.RatingMax))
	}
	if len(messages) > 0 {
		return nil, model.NewValidationError(messages...)
	}

	if s.sanitizer != nil {
		text = s.sanitizer.Sanitize(text)
	}

	review := &model.Review{
		ID:        uuid.New().String(),
		StoreID:   storeID,
		AuthorID:  authorID,
		Text:      text,
		Rating:    rating,
		CreatedAt: time.Now(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReviewCreated()
	}
	slog.Info("review created",
		slog.String("review_id", review.ID),
		slog.String("store_id", storeID),
		slog.Int("rating", rating),
	)

	return review, nil
}

// ListByStore は店舗のレビュー一覧を新しい順に返す。
func (s *Service) ListByStore(ctx context.Context, storeID string) ([]*model.Review, error) {
	return s.reviews.ListByStoreID(ctx, storeID)
}
