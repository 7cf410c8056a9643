package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/cleiver/Now-Thats-Delicious/internal/geocode"
	"github.com/cleiver/Now-Thats-Delicious/internal/model"
)

// GeocoderInterface は住所から座標への変換インターフェース。
type GeocoderInterface interface {
	// Lookup は住所を座標に変換する。見つからない場合はnilを返す。
	Lookup(ctx context.Context, address string) (*geocode.Result, error)
}

// GeocodeHandler は住所検索のHTTPハンドラー。
// 店舗登録フォームの住所入力を座標に変換するために使う。
type GeocodeHandler struct {
	geocoder GeocoderInterface
}

// NewGeocodeHandler はGeocodeHandlerを生成する。
func NewGeocodeHandler(geocoder GeocoderInterface) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

// Lookup は住所を座標に変換して返す。
// GET /api/geocode?q=住所
func (h *GeocodeHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("q"))
	if address == "" {
		handleServiceError(w, model.NewInvalidQueryError("住所が空です"))
		return
	}

	result, err := h.geocoder.Lookup(r.Context(), address)
	if err != nil {
		handleServiceError(w, model.NewGeocodeFailedError(err.Error()))
		return
	}
	if result == nil {
		handleServiceError(w, model.NewAddressNotFoundError(address))
		return
	}

	writeJSON(w, http.StatusOK, result)
}
