package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cleiver/Now-Thats-Delicious/internal/middleware"
	"github.com/cleiver/Now-Thats-Delicious/internal/model"
	"github.com/cleiver/Now-Thats-Delicious/internal/store"
)

// --- モック定義 ---

// mockStoreService はStoreServiceInterfaceのモック実装。
type mockStoreService struct {
	createFn     func(ctx context.Context, draft store.Draft, authorID string) (*model.Store, error)
	updateFn     func(ctx context.Context, storeID string, draft store.Draft, requesterID string) (*model.Store, error)
	getBySlugFn  func(ctx context.Context, slug string) (*store.Detail, error)
	getForEditFn func(ctx context.Context, storeID, requesterID string) (*model.Store, error)
	listFn       func(ctx context.Context, page int) (*store.Page, error)
	listByTagFn  func(ctx context.Context, tag string) ([]*model.Store, error)
}

func (m *mockStoreService) Create(ctx context.Context, draft store.Draft, authorID string) (*model.Store, error) {
	if m.createFn != nil {
		return m.createFn(ctx, draft, authorID)
	}
	return nil, nil
}

func (m *mockStoreService) Update(ctx context.Context, storeID string, draft store.Draft, requesterID string) (*model.Store, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, storeID, draft, requesterID)
	}
	return nil, nil
}

func (m *mockStoreService) GetBySlug(ctx context.Context, slug string) (*store.Detail, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, nil
}

func (m *mockStoreService) GetForEdit(ctx context.Context, storeID, requesterID string) (*model.Store, error) {
	if m.getForEditFn != nil {
		return m.getForEditFn(ctx, storeID, requesterID)
	}
	return nil, nil
}

func (m *mockStoreService) List(ctx context.Context, page int) (*store.Page, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page)
	}
	return &store.Page{Page: 1, Pages: 0, Total: 0}, nil
}

func (m *mockStoreService) ListByTag(ctx context.Context, tag string) ([]*model.Store, error) {
	if m.listByTagFn != nil {
		return m.listByTagFn(ctx, tag)
	}
	return nil, nil
}

// mockPhotoSaver はPhotoSaverのモック実装。
type mockPhotoSaver struct {
	saveFn func(r io.Reader, contentType string) (string, error)
}

func (m *mockPhotoSaver) Save(r io.Reader, contentType string) (string, error) {
	if m.saveFn != nil {
		return m.saveFn(r, contentType)
	}
	return "saved.jpg", nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// storeFormField は店舗フォームの1フィールドを表す。
type storeFormField struct {
	name  string
	value string
}

// buildStoreForm はmultipart/form-dataの店舗フォームボディを構築するヘルパー。
// photoContentTypeが空でない場合はphotoファイルフィールドを追加する。
func buildStoreForm(t *testing.T, fields []storeFormField, photoContentType string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}

	if photoContentType != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="photo"; filename="photo.jpg"`)
		header.Set("Content-Type", photoContentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("failed to create photo part: %v", err)
		}
		part.Write([]byte("fake image bytes"))
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	return &buf, mw.FormDataContentType()
}

func defaultStoreFields() []storeFormField {
	return []storeFormField{
		{"name", "Beer Garden"},
		{"description", "Best craft beers in town"},
		{"address", "123 Main St"},
		{"lng", "139.7671"},
		{"lat", "35.6812"},
		{"tags", "Wifi"},
		{"tags", "Licensed"},
	}
}

// --- POST /api/stores テスト ---

func TestStoreHandler_CreateStore_Success(t *testing.T) {
	svc := &mockStoreService{
		createFn: func(ctx context.Context, draft store.Draft, authorID string) (*model.Store, error) {
			if authorID != "user-1" {
				t.Errorf("authorID = %q, want %q", authorID, "user-1")
			}
			if draft.Name != "Beer Garden" {
				t.Errorf("name = %q, want %q", draft.Name, "Beer Garden")
			}
			if len(draft.Tags) != 2 {
				t.Errorf("tags = %v, want 2 items", draft.Tags)
			}
			if draft.Lng != 139.7671 || draft.Lat != 35.6812 {
				t.Errorf("coordinates = (%v, %v), want (139.7671, 35.6812)", draft.Lng, draft.Lat)
			}
			return &model.Store{
				ID:       "store-1",
				Name:     draft.Name,
				Slug:     "beer-garden",
				Tags:     draft.Tags,
				AuthorID: authorID,
			}, nil
		},
	}

	h := NewStoreHandler(svc, &mockPhotoSaver{})

	body, contentType := buildStoreForm(t, defaultStoreFields(), "")
	req := httptest.NewRequest(http.MethodPost, "/api/stores", body)
	req.Header.Set("Content-Type", contentType)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.CreateStore(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var result storeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Slug != "beer-garden" {
		t.Errorf("slug = %q, want %q", result.Slug, "beer-garden")
	}
}

func TestStoreHandler_CreateStore_WithPhoto_SavesAndPassesFilename(t *testing.T) {
	saver := &mockPhotoSaver{
		saveFn: func(r io.Reader, contentType string) (string, error) {
			if contentType != "image/jpeg" {
				t.Errorf("contentType = %q, want %q", contentType, "image/jpeg")
			}
			return "uuid-photo.jpg", nil
		},
	}

	svc := &mockStoreService{
		createFn: func(ctx context.Context, draft store.Draft, authorID string) (*model.Store, error) {
			if draft.Photo != "uuid-photo.jpg" {
				t.Errorf("photo = %q, want %q", draft.Photo, "uuid-photo.jpg")
			}
			return &model.Store{ID: "store-1", Photo: draft.Photo}, nil
		},
	}

	h := NewStoreHandler(svc, saver)

	body, contentType := buildStoreForm(t, defaultStoreFields(), "image/jpeg")
	req := httptest.NewRequest(http.MethodPost, "/api/stores", body)
	req.Header.Set("Content-Type", contentType)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.CreateStore(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
}

func TestStoreHandler_CreateStore_RejectedPhotoType_Returns422(t *testing.T) {
	saver := &mockPhotoSaver{
		saveFn: func(r io.Reader, contentType string) (string, error) {
			return "", model.NewPhotoNotAllowedError(contentType)
		},
	}

	h := NewStoreHandler(&mockStoreService{}, saver)

	body, contentType := buildStoreForm(t, defaultStoreFields(), "application/pdf")
	req := httptest.NewRequest(http.MethodPost, "/api/stores", body)
	req.Header.Set("Content-Type", contentType)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.CreateStore(w, req)

	if w.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnprocessableEntity)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodePhotoNotAllowed {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodePhotoNotAllowed)
	}
}

func TestStoreHandler_CreateStore_InvalidCoordinates_Returns422(t *testing.T) {
	h := NewStoreHandler(&mockStoreService{}, &mockPhotoSaver{})

	fields := []storeFormField{
		{"name", "Beer Garden"},
		{"address", "123 Main St"},
		{"lng", "not-a-number"},
		{"lat", "35.6812"},
	}
	body, contentType := buildStoreForm(t, fields, "")
	req := httptest.NewRequest(http.MethodPost, "/api/stores", body)
	req.Header.Set("Content-Type", contentType)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.CreateStore(w, req)

	if w.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestStoreHandler_CreateStore_NoUserID_Returns401(t *testing.T) {
	h := NewStoreHandler(&mockStoreService{}, &mockPhotoSaver{})

	body, contentType := buildStoreForm(t, defaultStoreFields(), "")
	req := httptest.NewRequest(http.MethodPost, "/api/stores", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.CreateStore(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- PUT /api/stores/{id} テスト ---

func TestStoreHandler_UpdateStore_Success(t *testing.T) {
	svc := &mockStoreService{
		updateFn: func(ctx context.Context, storeID string, draft store.Draft, requesterID string) (*model.Store, error) {
			if storeID != "store-1" {
				t.Errorf("storeID = %q, want %q", storeID, "store-1")
			}
			if requesterID != "user-1" {
				t.Errorf("requesterID = %q, want %q", requesterID, "user-1")
			}
			return &model.Store{ID: storeID, Name: draft.Name}, nil
		},
	}

	h := NewStoreHandler(svc, &mockPhotoSaver{})

	body, contentType := buildStoreForm(t, defaultStoreFields(), "")
	req := httptest.NewRequest(http.MethodPut, "/api/stores/store-1", body)
	req.Header.Set("Content-Type", contentType)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "store-1")
	w := httptest.NewRecorder()

	h.UpdateStore(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestStoreHandler_UpdateStore_NotAuthor_Returns403(t *testing.T) {
	svc := &mockStoreService{
		updateFn: func(ctx context.Context, storeID string, draft store.Draft, requesterID string) (*model.Store, error) {
			return nil, model.NewNotStoreAuthorError()
		},
	}

	h := NewStoreHandler(svc, &mockPhotoSaver{})

	body, contentType := buildStoreForm(t, defaultStoreFields(), "")
	req := httptest.NewRequest(http.MethodPut, "/api/stores/store-1", body)
	req.Header.Set("Content-Type", contentType)
	req = withUserID(req, "user-2")
	req = withChiURLParam(req, "id", "store-1")
	w := httptest.NewRecorder()

	h.UpdateStore(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeNotStoreAuthor {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeNotStoreAuthor)
	}
}

// --- GET /api/stores/slug/{slug} テスト ---

func TestStoreHandler_GetStoreBySlug_Success(t *testing.T) {
	svc := &mockStoreService{
		getBySlugFn: func(ctx context.Context, slug string) (*store.Detail, error) {
			if slug != "beer-garden" {
				t.Errorf("slug = %q, want %q", slug, "beer-garden")
			}
			return &store.Detail{
				Store: &model.Store{ID: "store-1", Name: "Beer Garden", Slug: slug},
				Reviews: []*model.Review{
					{ID: "review-1", StoreID: "store-1", Rating: 5, Text: "great"},
				},
			}, nil
		},
	}

	h := NewStoreHandler(svc, &mockPhotoSaver{})

	req := httptest.NewRequest(http.MethodGet, "/api/stores/slug/beer-garden", nil)
	req = withChiURLParam(req, "slug", "beer-garden")
	w := httptest.NewRecorder()

	h.GetStoreBySlug(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result storeDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Store.Name != "Beer Garden" {
		t.Errorf("store name = %q, want %q", result.Store.Name, "Beer Garden")
	}
	if len(result.Reviews) != 1 {
		t.Errorf("reviews = %d, want 1", len(result.Reviews))
	}
}

func TestStoreHandler_GetStoreBySlug_NotFound_Returns404(t *testing.T) {
	svc := &mockStoreService{
		getBySlugFn: func(ctx context.Context, slug string) (*store.Detail, error) {
			return nil, nil
		},
	}

	h := NewStoreHandler(svc, &mockPhotoSaver{})

	req := httptest.NewRequest(http.MethodGet, "/api/stores/slug/missing", nil)
	req = withChiURLParam(req, "slug", "missing")
	w := httptest.NewRecorder()

	h.GetStoreBySlug(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// --- GET /api/stores テスト ---

func TestStoreHandler_ListStores_PassesPageToService(t *testing.T) {
	svc := &mockStoreService{
		listFn: func(ctx context.Context, page int) (*store.Page, error) {
			if page != 3 {
				t.Errorf("page = %d, want 3", page)
			}
			return &store.Page{
				Stores: []*model.Store{{ID: "store-1"}},
				Page:   3,
				Pages:  5,
				Total:  20,
			}, nil
		},
	}

	h := NewStoreHandler(svc, &mockPhotoSaver{})

	req := httptest.NewRequest(http.MethodGet, "/api/stores?page=3", nil)
	w := httptest.NewRecorder()

	h.ListStores(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result storeListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Page != 3 || result.Pages != 5 || result.Total != 20 {
		t.Errorf("pagination = %d/%d/%d, want 3/5/20", result.Page, result.Pages, result.Total)
	}
}

func TestStoreHandler_ListStores_InvalidPage_Returns400(t *testing.T) {
	h := NewStoreHandler(&mockStoreService{}, &mockPhotoSaver{})

	req := httptest.NewRequest(http.MethodGet, "/api/stores?page=zero", nil)
	w := httptest.NewRecorder()

	h.ListStores(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- GET /api/stores/{id}/edit テスト ---

func TestStoreHandler_GetStoreForEdit_Success(t *testing.T) {
	svc := &mockStoreService{
		getForEditFn: func(ctx context.Context, storeID, requesterID string) (*model.Store, error) {
			if storeID != "store-1" || requesterID != "user-1" {
				t.Errorf("args = (%q, %q), want (store-1, user-1)", storeID, requesterID)
			}
			return &model.Store{ID: storeID, AuthorID: requesterID}, nil
		},
	}

	h := NewStoreHandler(svc, &mockPhotoSaver{})

	req := httptest.NewRequest(http.MethodGet, "/api/stores/store-1/edit", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "store-1")
	w := httptest.NewRecorder()

	h.GetStoreForEdit(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}
