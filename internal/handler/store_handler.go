package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cleiver/Now-Thats-Delicious/internal/middleware"
	"github.com/cleiver/Now-Thats-Delicious/internal/model"
	"github.com/cleiver/Now-Thats-Delicious/internal/store"
)

// maxUploadBytes は店舗フォーム（写真含む）の最大サイズ。
const maxUploadBytes = 10 << 20 // 10MB

// StoreServiceInterface は店舗ハンドラーが必要とするサービスインターフェース。
type StoreServiceInterface interface {
	// Create は店舗を作成する。
	Create(ctx context.Context, draft store.Draft, authorID string) (*model.Store, error)
	// Update は店舗を更新する。作成者本人のみ許可される。
	Update(ctx context.Context, storeID string, draft store.Draft, requesterID string) (*model.Store, error)
	// GetBySlug は店舗詳細をレビュー付きで取得する。見つからない場合はnilを返す。
	GetBySlug(ctx context.Context, slug string) (*store.Detail, error)
	// GetForEdit は編集フォーム用に店舗を取得する。作成者本人のみ許可される。
	GetForEdit(ctx context.Context, storeID, requesterID string) (*model.Store, error)
	// List は店舗一覧の1ページを返す。
	List(ctx context.Context, page int) (*store.Page, error)
	// ListByTag は指定タグを持つ店舗の一覧を返す。
	ListByTag(ctx context.Context, tag string) ([]*model.Store, error)
}

// PhotoSaver はアップロードされた写真の保存インターフェース。
type PhotoSaver interface {
	// Save は写真を保存し、保存されたファイル名を返す。
	// 許可されていないContent-Typeの場合はPhotoNotAllowedを返す。
	Save(r io.Reader, contentType string) (string, error)
}

// StoreHandler は店舗管理のHTTPハンドラー。
type StoreHandler struct {
	service StoreServiceInterface
	photos  PhotoSaver
}

// NewStoreHandler はStoreHandlerを生成する。
func NewStoreHandler(service StoreServiceInterface, photos PhotoSaver) *StoreHandler {
	return &StoreHandler{
		service: service,
		photos:  photos,
	}
}

// storeResponse は店舗情報のAPIレスポンス。
type storeResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Location    model.Location `json:"location"`
	Photo       string         `json:"photo"`
	AuthorID    string         `json:"author_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// storeListResponse は店舗一覧のAPIレスポンス。
type storeListResponse struct {
	Stores []storeResponse `json:"stores"`
	Page   int             `json:"page"`
	Pages  int             `json:"pages"`
	Total  int             `json:"total"`
}

// storeDetailResponse は店舗詳細（レビュー付き）のAPIレスポンス。
type storeDetailResponse struct {
	Store   storeResponse    `json:"store"`
	Reviews []reviewResponse `json:"reviews"`
}

// CreateStore は店舗を登録する。multipart/form-dataで受け取り、
// photoフィールドがあれば写真を保存する。
// POST /api/stores
func (h *StoreHandler) CreateStore(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	draft, apiErr := h.parseStoreForm(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	created, err := h.service.Create(r.Context(), *draft, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toStoreResponse(created))
}

// UpdateStore は店舗を更新する。作成者本人のみ許可される。
// PUT /api/stores/{id}
func (h *StoreHandler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	storeID := chi.URLParam(r, "id")

	draft, apiErr := h.parseStoreForm(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	updated, err := h.service.Update(r.Context(), storeID, *draft, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStoreResponse(updated))
}

// GetStoreBySlug は店舗詳細をレビュー付きで返す。
// GET /api/stores/slug/{slug}
func (h *StoreHandler) GetStoreBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	detail, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if detail == nil {
		handleServiceError(w, model.NewStoreNotFoundError(slug))
		return
	}

	reviews := make([]reviewResponse, 0, len(detail.Reviews))
	for _, review := range detail.Reviews {
		reviews = append(reviews, toReviewResponse(review))
	}

	writeJSON(w, http.StatusOK, storeDetailResponse{
		Store:   toStoreResponse(detail.Store),
		Reviews: reviews,
	})
}

// GetStoreForEdit は編集フォーム用の店舗情報を返す。作成者本人のみ許可される。
// GET /api/stores/{id}/edit
func (h *StoreHandler) GetStoreForEdit(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	storeID := chi.URLParam(r, "id")

	st, err := h.service.GetForEdit(r.Context(), storeID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStoreResponse(st))
}

// ListStores は店舗一覧の1ページを返す。
// 範囲外のページは最終ページに丸められる。
// GET /api/stores?page=N
func (h *StoreHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			handleServiceError(w, model.NewInvalidQueryError("pageは1以上の整数で指定してください"))
			return
		}
		page = parsed
	}

	result, err := h.service.List(r.Context(), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	stores := make([]storeResponse, 0, len(result.Stores))
	for _, st := range result.Stores {
		stores = append(stores, toStoreResponse(st))
	}

	writeJSON(w, http.StatusOK, storeListResponse{
		Stores: stores,
		Page:   result.Page,
		Pages:  result.Pages,
		Total:  result.Total,
	})
}

// parseStoreForm はmultipartフォームからDraftを組み立てる。
// photoフィールドがあれば保存し、ファイル名をDraftに設定する。
func (h *StoreHandler) parseStoreForm(r *http.Request) (*store.Draft, *model.APIError) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, &model.APIError{
			Code:     "INVALID_BODY",
			Message:  "フォームデータの解析に失敗しました。",
			Category: "validation",
			Action:   "multipart/form-data形式で送信してください。",
		}
	}

	lng, lat, apiErr := parseCoordinateFields(r.FormValue("lng"), r.FormValue("lat"))
	if apiErr != nil {
		return nil, apiErr
	}

	draft := &store.Draft{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Tags:        r.MultipartForm.Value["tags"],
		Address:     r.FormValue("address"),
		Lng:         lng,
		Lat:         lat,
	}

	file, header, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return draft, nil
	}
	if err != nil {
		return nil, &model.APIError{
			Code:     "INVALID_BODY",
			Message:  "写真ファイルの読み取りに失敗しました。",
			Category: "validation",
			Action:   "写真を選択し直して再度お試しください。",
		}
	}
	defer file.Close()

	filename, err := h.photos.Save(file, header.Header.Get("Content-Type"))
	if err != nil {
		var photoErr *model.APIError
		if errors.As(err, &photoErr) {
			return nil, photoErr
		}
		return nil, &model.APIError{
			Code:     "PHOTO_SAVE_FAILED",
			Message:  "写真の保存に失敗しました。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		}
	}
	draft.Photo = filename

	return draft, nil
}

// parseCoordinateFields はフォームの経度・緯度フィールドを数値に変換する。
func parseCoordinateFields(lngRaw, latRaw string) (float64, float64, *model.APIError) {
	var messages []string
	var lng, lat float64
	var err error

	if lng, err = strconv.ParseFloat(lngRaw, 64); err != nil {
		messages = append(messages, "経度を数値で入力してください。")
	}
	if lat, err = strconv.ParseFloat(latRaw, 64); err != nil {
		messages = append(messages, "緯度を数値で入力してください。")
	}

	if len(messages) > 0 {
		return 0, 0, model.NewValidationError(messages...)
	}
	return lng, lat, nil
}

// toStoreResponse はmodel.StoreからAPIレスポンスに変換する。
func toStoreResponse(st *model.Store) storeResponse {
	return storeResponse{
		ID:          st.ID,
		Name:        st.Name,
		Slug:        st.Slug,
		Description: st.Description,
		Tags:        st.Tags,
		Location:    st.Location,
		Photo:       st.Photo,
		AuthorID:    st.AuthorID,
		CreatedAt:   st.CreatedAt,
		UpdatedAt:   st.UpdatedAt,
	}
}
