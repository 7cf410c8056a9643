// Package catalog は店舗カタログの分析系読み取り操作を提供する。
// タグ集計、トップ店舗ランキング、近傍検索、全文検索の4つで、
// いずれも永続化された店舗・レビューデータの純粋な読み取り。
// 書き込みと並行して実行してよく、結果の鮮度は保証しない。
package catalog

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
	"github.com/cleiver/Now-Thats-Delicious/internal/repository"
)

const (
	// topStoresLimit はランキングの最大件数。
	topStoresLimit = 10
	// nearMaxMeters は近傍検索の距離カットオフ（10km）。
	nearMaxMeters = 10000
	// nearLimit は近傍検索の最大件数。
	nearLimit = 10
)

// MetricsRecorder は分析クエリのメトリクス記録インターフェース。
// nilの場合は記録しない。
type MetricsRecorder interface {
	RecordSearch()
	RecordGeoQuery()
	RecordQueryLatency(operation string, duration time.Duration)
}

// Service は分析系読み取り操作のサービス層。
// 入力の検証を行い、集計パイプラインの実行はリポジトリに委譲する。
type Service struct {
	stores  repository.StoreRepository
	metrics MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(stores repository.StoreRepository, metrics MetricsRecorder) *Service {
	return &Service{
		stores:  stores,
		metrics: metrics,
	}
}

// TagCounts は全店舗をタグごとに集計し、件数降順で返す。
// k個のタグを持つ店舗はk個のタグにそれぞれ1ずつ寄与する。
func (s *Service) TagCounts(ctx context.Context) ([]model.TagCount, error) {
	defer s.observe("tag_counts", time.Now())
	return s.stores.TagCounts(ctx)
}

// TopStores はレビューが2件以上ある店舗を平均評価の降順で最大10件返す。
func (s *Service) TopStores(ctx context.Context) ([]model.RankedStore, error) {
	defer s.observe("top_stores", time.Now())
	return s.stores.TopStores(ctx, topStoresLimit)
}

// Near は指定座標から10km以内の店舗を近い順に最大10件返す。
// 座標が数値として不正、または範囲外の場合はInvalidQueryを返す。
func (s *Service) Near(ctx context.Context, lng, lat float64) ([]model.NearbyStore, error) {
	if err := validateCoordinates(lng, lat); err != nil {
		return nil, err
	}

	defer s.observe("near", time.Now())
	if s.metrics != nil {
		s.metrics.RecordGeoQuery()
	}

	return s.stores.Near(ctx, lng, lat, nearMaxMeters, nearLimit)
}

// Search は自由テキストを全文検索し、関連度スコアの降順で返す。
// 空の検索語はInvalidQueryとする（空の結果ではなくエラーを返す方針）。
func (s *Service) Search(ctx context.Context, query string) ([]model.ScoredStore, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.NewInvalidQueryError("検索語が空です")
	}

	defer s.observe("search", time.Now())
	if s.metrics != nil {
		s.metrics.RecordSearch()
	}

	return s.stores.Search(ctx, query)
}

// observe は操作のレイテンシを記録する。
func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordQueryLatency(operation, time.Since(start))
	}
}

// validateCoordinates は経度・緯度ペアを検証する。
func validateCoordinates(lng, lat float64) error {
	if math.IsNaN(lng) || math.IsInf(lng, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return model.NewInvalidQueryError("座標が数値として不正です")
	}
	if lng < -180 || lng > 180 {
		return model.NewInvalidQueryError("経度は-180から180の範囲で指定してください")
	}
	if lat < -90 || lat > 90 {
		return model.NewInvalidQueryError("緯度は-90から90の範囲で指定してください")
	}
	return nil
}
