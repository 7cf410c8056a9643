// Package user はアカウント管理とお気に入り（ハート）のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
	"github.com/cleiver/Now-Thats-Delicious/internal/repository"
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	storeRepo repository.StoreRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, storeRepo repository.StoreRepository) *Service {
	return &Service{
		userRepo:  userRepo,
		storeRepo: storeRepo,
	}
}

// UpdateAccount は表示名とメールアドレスを更新し、更新後のユーザーを返す。
// メールアドレスが他ユーザーと重複する場合はDUPLICATE_EMAILを返す。
func (s *Service) UpdateAccount(ctx context.Context, userID, name, email string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	var messages []string
	if name == "" {
		messages = append(messages, "名前を入力してください。")
	}
	if email == "" {
		messages = append(messages, "メールアドレスを入力してください。")
	} else if _, err := mail.ParseAddress(email); err != nil {
		messages = append(messages, "メールアドレスの形式が正しくありません。")
	}
	if len(messages) > 0 {
		return nil, model.NewValidationError(messages...)
	}

	if err := s.userRepo.UpdateAccount(ctx, userID, name, email); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("アカウントの更新に失敗しました: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("account updated", slog.String("user_id", userID))

	return user, nil
}

// ToggleHeart は店舗のお気に入り状態を反転する。
// 反転後のお気に入りID一覧と、追加されたかどうかを返す。
func (s *Service) ToggleHeart(ctx context.Context, userID, storeID string) ([]string, bool, error) {
	store, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		return nil, false, err
	}
	if store == nil {
		return nil, false, model.NewStoreNotFoundError(storeID)
	}

	hearts, err := s.userRepo.ListHearts(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("お気に入りの取得に失敗しました: %w", err)
	}

	hearted := false
	for _, id := range hearts {
		if id == storeID {
			hearted = true
			break
		}
	}

	if hearted {
		if err := s.userRepo.RemoveHeart(ctx, userID, storeID); err != nil {
			return nil, false, fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
		}
	} else {
		if err := s.userRepo.AddHeart(ctx, userID, storeID); err != nil {
			return nil, false, fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
		}
	}

	updated, err := s.userRepo.ListHearts(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("お気に入りの取得に失敗しました: %w", err)
	}

	slog.Info("heart toggled",
		slog.String("user_id", userID),
		slog.String("store_id", storeID),
		slog.Bool("hearted", !hearted),
	)

	return updated, !hearted, nil
}

// ListHeartedStores はユーザーがお気に入りにした店舗の一覧を返す。
func (s *Service) ListHeartedStores(ctx context.Context, userID string) ([]*model.Store, error) {
	hearts, err := s.userRepo.ListHearts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの取得に失敗しました: %w", err)
	}
	if len(hearts) == 0 {
		return nil, nil
	}
	return s.storeRepo.ListByIDs(ctx, hearts)
}
