package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	// TagCounts はタグごとの店舗数を件数降順で返す。
	TagCounts(ctx context.Context) ([]model.TagCount, error)
	// TopStores はレビュー平均によるランキングを返す。
	TopStores(ctx context.Context) ([]model.RankedStore, error)
	// Near は指定座標の近傍店舗を近い順で返す。
	Near(ctx context.Context, lng, lat float64) ([]model.NearbyStore, error)
	// Search は全文検索を行い、関連度降順で返す。
	Search(ctx context.Context, query string) ([]model.ScoredStore, error)
}

// TagStoreLister はタグ別の店舗一覧取得インターフェース。
// store.Serviceの部分集合として定義する。
type TagStoreLister interface {
	ListByTag(ctx context.Context, tag string) ([]*model.Store, error)
}

// CatalogHandler はタグ集計・ランキング・検索のHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
	stores  TagStoreLister
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface, stores TagStoreLister) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		stores:  stores,
	}
}

// tagPageResponse はタグページのAPIレスポンス。
// 全タグの集計と、選択タグに該当する店舗一覧を同時に返す。
type tagPageResponse struct {
	Tag    string           `json:"tag,omitempty"`
	Tags   []model.TagCount `json:"tags"`
	Stores []storeResponse  `json:"stores"`
}

// ListTags はタグ集計と該当店舗の一覧を返す。
// タグ未指定の場合はタグを1つ以上持つ全店舗が対象となる。
// GET /api/tags
// GET /api/tags/{tag}
func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")

	counts, err := h.service.TagCounts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	stores, err := h.stores.ListByTag(r.Context(), tag)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]storeResponse, 0, len(stores))
	for _, st := range stores {
		responses = append(responses, toStoreResponse(st))
	}

	writeJSON(w, http.StatusOK, tagPageResponse{
		Tag:    tag,
		Tags:   counts,
		Stores: responses,
	})
}

// TopStores はレビューが2件以上ある店舗のランキングを返す。
// GET /api/top
func (h *CatalogHandler) TopStores(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.service.TopStores(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if ranked == nil {
		ranked = []model.RankedStore{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.RankedStore{"stores": ranked})
}

// Near は指定座標から10km以内の店舗を近い順で返す。
// GET /api/stores/near?lng=139.76&lat=35.68
func (h *CatalogHandler) Near(w http.ResponseWriter, r *http.Request) {
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		handleServiceError(w, model.NewInvalidQueryError("経度を数値で指定してください"))
		return
	}
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		handleServiceError(w, model.NewInvalidQueryError("緯度を数値で指定してください"))
		return
	}

	nearby, err := h.service.Near(r.Context(), lng, lat)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if nearby == nil {
		nearby = []model.NearbyStore{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.NearbyStore{"stores": nearby})
}

// Search は自由テキストの全文検索結果を関連度降順で返す。
// GET /api/search?q=coffee
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if results == nil {
		results = []model.ScoredStore{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.ScoredStore{"results": results})
}
