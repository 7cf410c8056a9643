package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
	"github.com/cleiver/Now-Thats-Delicious/internal/repository"
)

// mockUserRepo はUserRepositoryのテスト用モック。
type mockUserRepo struct {
	findByIDFunc         func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc      func(ctx context.Context, email string) (*model.User, error)
	createFunc           func(ctx context.Context, user *model.User) error
	updateAccountFunc    func(ctx context.Context, userID, name, email string) error
	setResetTokenFunc    func(ctx context.Context, userID, token string, expires time.Time) error
	findByResetTokenFunc func(ctx context.Context, token string) (*model.User, error)
	resetPasswordFunc    func(ctx context.Context, userID, passwordHash string) error
	listHeartsFunc       func(ctx context.Context, userID string) ([]string, error)
	addHeartFunc         func(ctx context.Context, userID, storeID string) error
	removeHeartFunc      func(ctx context.Context, userID, storeID string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.findByEmailFunc(ctx, email)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.createFunc(ctx, user)
}

func (m *mockUserRepo) UpdateAccount(ctx context.Context, userID, name, email string) error {
	return m.updateAccountFunc(ctx, userID, name, email)
}

func (m *mockUserRepo) SetResetToken(ctx context.Context, userID, token string, expires time.Time) error {
	return m.setResetTokenFunc(ctx, userID, token, expires)
}

func (m *mockUserRepo) FindByResetToken(ctx context.Context, token string) (*model.User, error) {
	return m.findByResetTokenFunc(ctx, token)
}

func (m *mockUserRepo) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	return m.resetPasswordFunc(ctx, userID, passwordHash)
}

func (m *mockUserRepo) ListHearts(ctx context.Context, userID string) ([]string, error) {
	return m.listHeartsFunc(ctx, userID)
}

func (m *mockUserRepo) AddHeart(ctx context.Context, userID, storeID string) error {
	return m.addHeartFunc(ctx, userID, storeID)
}

func (m *mockUserRepo) RemoveHeart(ctx context.Context, userID, storeID string) error {
	return m.removeHeartFunc(ctx, userID, storeID)
}

// mockStoreRepo はStoreRepositoryのテスト用モック。
// このパッケージのテストで使うメソッドだけ関数フィールドを持つ。
type mockStoreRepo struct {
	findByIDFunc  func(ctx context.Context, id string) (*model.Store, error)
	listByIDsFunc func(ctx context.Context, ids []string) ([]*model.Store, error)
}

func (m *mockStoreRepo) FindByID(ctx context.Context, id string) (*model.Store, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockStoreRepo) FindBySlug(ctx context.Context, slug string) (*model.Store, error) {
	return nil, nil
}

func (m *mockStoreRepo) Create(ctx context.Context, store *model.Store) error { return nil }

func (m *mockStoreRepo) Update(ctx context.Context, store *model.Store) error { return nil }

func (m *mockStoreRepo) List(ctx context.Context, offset, limit int) ([]*model.Store, error) {
	return nil, nil
}

func (m *mockStoreRepo) Count(ctx context.Context) (int, error) { return 0, nil }

func (m *mockStoreRepo) ListByTag(ctx context.Context, tag string) ([]*model.Store, error) {
	return nil, nil
}

func (m *mockStoreRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Store, error) {
	return m.listByIDsFunc(ctx, ids)
}

func (m *mockStoreRepo) MaxSlugSuffix(ctx context.Context, base, excludeID string) (int, error) {
	return 0, nil
}

func (m *mockStoreRepo) TagCounts(ctx context.Context) ([]model.TagCount, error) { return nil, nil }

func (m *mockStoreRepo) TopStores(ctx context.Context, limit int) ([]model.RankedStore, error) {
	return nil, nil
}

func (m *mockStoreRepo) Near(ctx context.Context, lng, lat, maxMeters float64, limit int) ([]model.NearbyStore, error) {
	return nil, nil
}

func (m *mockStoreRepo) Search(ctx context.Context, query string) ([]model.ScoredStore, error) {
	return nil, nil
}

// TestUpdateAccount_Success は名前とメールの更新が保存されることを確認する。
func TestUpdateAccount_Success(t *testing.T) {
	var savedName, savedEmail string
	userRepo := &mockUserRepo{
		updateAccountFunc: func(ctx context.Context, userID, name, email string) error {
			savedName = name
			savedEmail = email
			return nil
		},
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: savedName, Email: savedEmail}, nil
		},
	}

	svc := NewService(userRepo, &mockStoreRepo{})
	user, err := svc.UpdateAccount(context.Background(), "user-1", "  Hanako  ", "hanako@example.com")
	if err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
	if user.Name != "Hanako" {
		t.Errorf("expected trimmed name Hanako, got %q", user.Name)
	}
	if user.Email != "hanako@example.com" {
		t.Errorf("expected email hanako@example.com, got %s", user.Email)
	}
}

// TestUpdateAccount_Validation は空の名前・不正なメールが拒否されることを確認する。
func TestUpdateAccount_Validation(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockStoreRepo{})

	tests := []struct {
		name  string
		uname string
		email string
	}{
		{"empty name", "", "hanako@example.com"},
		{"empty email", "Hanako", ""},
		{"invalid email", "Hanako", "not-an-email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateAccount(context.Background(), "user-1", tt.uname, tt.email)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != "VALIDATION_FAILED" {
				t.Errorf("expected VALIDATION_FAILED, got %s", apiErr.Code)
			}
		})
	}
}

// TestUpdateAccount_DuplicateEmail はメール重複がDUPLICATE_EMAILに変換されることを確認する。
func TestUpdateAccount_DuplicateEmail(t *testing.T) {
	userRepo := &mockUserRepo{
		updateAccountFunc: func(ctx context.Context, userID, name, email string) error {
			return repository.ErrDuplicateEmail
		},
	}

	svc := NewService(userRepo, &mockStoreRepo{})
	_, err := svc.UpdateAccount(context.Background(), "user-1", "Hanako", "taken@example.com")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "DUPLICATE_EMAIL" {
		t.Errorf("expected DUPLICATE_EMAIL, got %s", apiErr.Code)
	}
}

// TestToggleHeart_AddThenRemove は1回目で追加、2回目で削除になることを確認する。
func TestToggleHeart_AddThenRemove(t *testing.T) {
	hearts := map[string]bool{}
	userRepo := &mockUserRepo{
		listHeartsFunc: func(ctx context.Context, userID string) ([]string, error) {
			var ids []string
			for id := range hearts {
				ids = append(ids, id)
			}
			return ids, nil
		},
		addHeartFunc: func(ctx context.Context, userID, storeID string) error {
			hearts[storeID] = true
			return nil
		},
		removeHeartFunc: func(ctx context.Context, userID, storeID string) error {
			delete(hearts, storeID)
			return nil
		},
	}
	storeRepo := &mockStoreRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Store, error) {
			return &model.Store{ID: id}, nil
		},
	}

	svc := NewService(userRepo, storeRepo)

	ids, hearted, err := svc.ToggleHeart(context.Background(), "user-1", "store-1")
	if err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if !hearted {
		t.Error("first toggle should add the heart")
	}
	if len(ids) != 1 || ids[0] != "store-1" {
		t.Errorf("expected hearts [store-1], got %v", ids)
	}

	ids, hearted, err = svc.ToggleHeart(context.Background(), "user-1", "store-1")
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if hearted {
		t.Error("second toggle should remove the heart")
	}
	if len(ids) != 0 {
		t.Errorf("expected no hearts, got %v", ids)
	}
}

// TestToggleHeart_StoreNotFound は存在しない店舗でSTORE_NOT_FOUNDになることを確認する。
func TestToggleHeart_StoreNotFound(t *testing.T) {
	storeRepo := &mockStoreRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Store, error) {
			return nil, nil
		},
	}

	svc := NewService(&mockUserRepo{}, storeRepo)
	_, _, err := svc.ToggleHeart(context.Background(), "user-1", "missing-store")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "STORE_NOT_FOUND" {
		t.Errorf("expected STORE_NOT_FOUND, got %s", apiErr.Code)
	}
}

// TestListHeartedStores はお気に入りIDで店舗一覧が引かれることを確認する。
func TestListHeartedStores(t *testing.T) {
	userRepo := &mockUserRepo{
		listHeartsFunc: func(ctx context.Context, userID string) ([]string, error) {
			return []string{"store-1", "store-2"}, nil
		},
	}
	storeRepo := &mockStoreRepo{
		listByIDsFunc: func(ctx context.Context, ids []string) ([]*model.Store, error) {
			stores := make([]*model.Store, len(ids))
			for i, id := range ids {
				stores[i] = &model.Store{ID: id}
			}
			return stores, nil
		},
	}

	svc := NewService(userRepo, storeRepo)
	stores, err := svc.ListHeartedStores(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListHeartedStores failed: %v", err)
	}
	if len(stores) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(stores))
	}
}

// TestListHeartedStores_Empty はお気に入りがない場合に空を返すことを確認する。
func TestListHeartedStores_Empty(t *testing.T) {
	userRepo := &mockUserRepo{
		listHeartsFunc: func(ctx context.Context, userID string) ([]string, error) {
			return nil, nil
		},
	}

	svc := NewService(userRepo, &mockStoreRepo{})
	stores, err := svc.ListHeartedStores(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListHeartedStores failed: %v", err)
	}
	if len(stores) != 0 {
		t.Errorf("expected no stores, got %d", len(stores))
	}
}
