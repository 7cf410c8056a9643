package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cleiver/Now-Thats-Delicious/internal/middleware"
	"github.com/cleiver/Now-Thats-Delicious/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpdateAccount は表示名とメールアドレスを更新する。
	UpdateAccount(ctx context.Context, userID, name, email string) (*model.User, error)
	// ToggleHeart はお気に入りの追加・削除を切り替える。
	// 更新後のお気に入りID一覧と、追加されたかどうかを返す。
	ToggleHeart(ctx context.Context, userID, storeID string) ([]string, bool, error)
	// ListHeartedStores はお気に入り店舗の一覧を返す。
	ListHeartedStores(ctx context.Context, userID string) ([]*model.Store, error)
}

// UserHandler はアカウント管理とお気に入りのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// updateAccountRequest はアカウント更新リクエストのボディ。
type updateAccountRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// heartResponse はお気に入り切り替えのAPIレスポンス。
type heartResponse struct {
	Hearts  []string `json:"hearts"`
	Hearted bool     `json:"hearted"`
}

// UpdateAccount はログインユーザーの表示名とメールアドレスを更新する。
// PUT /api/account
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	user, err := h.service.UpdateAccount(r.Context(), userID, req.Name, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	})
}

// ToggleHeart は店舗のお気に入り状態を切り替える。
// POST /api/stores/{id}/heart
func (h *UserHandler) ToggleHeart(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	storeID := chi.URLParam(r, "id")

	hearts, hearted, err := h.service.ToggleHeart(r.Context(), userID, storeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if hearts == nil {
		hearts = []string{}
	}
	writeJSON(w, http.StatusOK, heartResponse{
		Hearts:  hearts,
		Hearted: hearted,
	})
}

// ListHearts はログインユーザーのお気に入り店舗一覧を返す。
// GET /api/hearts
func (h *UserHandler) ListHearts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	stores, err := h.service.ListHeartedStores(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]storeResponse, 0, len(stores))
	for _, st := range stores {
		responses = append(responses, toStoreResponse(st))
	}

	writeJSON(w, http.StatusOK, map[string][]storeResponse{"stores": responses})
}
