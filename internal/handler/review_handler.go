package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cleiver/Now-Thats-Delicious/internal/middleware"
	"github.com/cleiver/Now-Thats-Delicious/internal/model"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	// Add は店舗にレビューを追加する。
	Add(ctx context.Context, storeID, authorID, text string, rating int) (*model.Review, error)
	// ListByStore は店舗のレビュー一覧を新しい順で返す。
	ListByStore(ctx context.Context, storeID string) ([]*model.Review, error)
}

// ReviewHandler はレビューのHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// addReviewRequest はレビュー投稿リクエストのボディ。
type addReviewRequest struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// reviewResponse はレビューのAPIレスポンス。
type reviewResponse struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// AddReview は店舗にレビューを投稿する。
// POST /api/stores/{id}/reviews
func (h *ReviewHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req addReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	storeID := chi.URLParam(r, "id")

	review, err := h.service.Add(r.Context(), storeID, userID, req.Text, req.Rating)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReviewResponse(review))
}

// ListReviews は店舗のレビュー一覧を返す。
// GET /api/stores/{id}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")

	reviews, err := h.service.ListByStore(r.Context(), storeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]reviewResponse, 0, len(reviews))
	for _, review := range reviews {
		responses = append(responses, toReviewResponse(review))
	}

	writeJSON(w, http.StatusOK, map[string][]reviewResponse{"reviews": responses})
}

// toReviewResponse はmodel.ReviewからAPIレスポンスに変換する。
func toReviewResponse(review *model.Review) reviewResponse {
	return reviewResponse{
		ID:        review.ID,
		StoreID:   review.StoreID,
		AuthorID:  review.AuthorID,
		Text:      review.Text,
		Rating:    review.Rating,
		CreatedAt: review.CreatedAt,
	}
}
