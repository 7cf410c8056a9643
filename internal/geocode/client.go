// Package geocode は住所から座標への変換（ジオコーディング）を提供する。
// Nominatim互換の検索APIを使用する。
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// requestTimeout はジオコーダへのリクエストタイムアウト。
	requestTimeout = 10 * time.Second
	// maxResponseSize はレスポンスボディの最大サイズ（1MB）。
	maxResponseSize = 1 * 1024 * 1024
)

// SSRFGuard はジオコーダへの安全なHTTPクライアント生成インターフェース。
type SSRFGuard interface {
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
	ValidateURL(rawURL string) error
}

// Result はジオコーディングの結果。
type Result struct {
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
	Address string  `json:"address"` // ジオコーダが返した正規化済み住所
}

// nominatimPlace はNominatim検索APIのレスポンス要素。
// 緯度経度は文字列で返される。
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Client はNominatim互換ジオコーダのクライアント。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient はClientを生成する。
// baseURLが安全でない場合（プライベートIP等）はエラーを返す。
func NewClient(baseURL string, guard SSRFGuard) (*Client, error) {
	if err := guard.ValidateURL(baseURL); err != nil {
		return nil, fmt.Errorf("ジオコーダのURLが不正です: %w", err)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: guard.NewSafeClient(requestTimeout, maxResponseSize),
	}, nil
}

// NewClientWithHTTPClient はHTTPクライアントを指定してClientを生成する。
// テスト用。
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Lookup は住所を座標に変換する。
// 住所が見つからない場合はnilを返す。
func (c *Client) Lookup(ctx context.Context, address string) (*Result, error) {
	endpoint, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("ジオコーダURLの解析に失敗しました: %w", err)
	}
	query := endpoint.Query()
	query.Set("format", "json")
	query.Set("q", address)
	query.Set("limit", "1")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ジオコーダへのリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ジオコーダがエラーを返しました: status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み取りに失敗しました: %w", err)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("レスポンスの解析に失敗しました: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("緯度の解析に失敗しました: %w", err)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("経度の解析に失敗しました: %w", err)
	}

	slog.Debug("geocode lookup",
		slog.String("address", address),
		slog.Float64("lng", lng),
		slog.Float64("lat", lat),
	)

	return &Result{Lng: lng, Lat: lat, Address: places[0].DisplayName}, nil
}
