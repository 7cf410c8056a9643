package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cleiver/Now-Thats-Delicious/internal/middleware"
)

// HealthChecker はヘルスチェックでのDB疎通確認インターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 店舗
	StoreService StoreServiceInterface
	PhotoSaver   PhotoSaver

	// カタログ（タグ集計・ランキング・検索）
	CatalogService CatalogServiceInterface

	// レビュー
	ReviewService ReviewServiceInterface

	// ユーザー（アカウント・お気に入り）
	UserService UserServiceInterface

	// ジオコーディング
	Geocoder GeocoderInterface

	// アップロード済み写真の配信ディレクトリ
	UploadDir string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → CSRFMiddleware → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）と読み取り専用の公開ルートはセッションミドルウェアの外に配置する。
// 認証ルートの登録・ログイン・リセット系にはIP単位の認証レート制限のみを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	storeHandler := NewStoreHandler(deps.StoreService, deps.PhotoSaver)
	catalogHandler := NewCatalogHandler(deps.CatalogService, deps.StoreService)
	reviewHandler := NewReviewHandler(deps.ReviewService)
	userHandler := NewUserHandler(deps.UserService)
	geocodeHandler := NewGeocodeHandler(deps.Geocoder)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// 認証ルート。登録・ログイン・リセット申請には
	// IPアドレス単位の認証レート制限を適用する。
	authLimit := deps.RateLimiter.AuthMiddleware()
	r.Route("/auth", func(r chi.Router) {
		r.With(authLimit).Post("/register", authHandler.Register)
		r.With(authLimit).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
		r.With(authLimit).Post("/forgot", authHandler.Forgot)
		r.Get("/reset/{token}", authHandler.CheckReset)
		r.With(authLimit).Post("/reset/{token}", authHandler.Reset)
	})

	// CSRFトークン取得
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// 公開の読み取りルート
	r.Get("/api/stores", storeHandler.ListStores)
	r.Get("/api/stores/slug/{slug}", storeHandler.GetStoreBySlug)
	r.Get("/api/stores/near", catalogHandler.Near)
	r.Get("/api/stores/{id}/reviews", reviewHandler.ListReviews)
	r.Get("/api/tags", catalogHandler.ListTags)
	r.Get("/api/tags/{tag}", catalogHandler.ListTags)
	r.Get("/api/top", catalogHandler.TopStores)
	r.Get("/api/search", catalogHandler.Search)

	// アップロード済み写真の配信
	if deps.UploadDir != "" {
		fileServer := http.FileServer(http.Dir(deps.UploadDir))
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: CSRF → Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 店舗管理
		r.Post("/api/stores", storeHandler.CreateStore)
		r.Put("/api/stores/{id}", storeHandler.UpdateStore)
		r.Get("/api/stores/{id}/edit", storeHandler.GetStoreForEdit)

		// レビュー投稿
		r.Post("/api/stores/{id}/reviews", reviewHandler.AddReview)

		// お気に入り
		r.Post("/api/stores/{id}/heart", userHandler.ToggleHeart)
		r.Get("/api/hearts", userHandler.ListHearts)

		// アカウント管理
		r.Put("/api/account", userHandler.UpdateAccount)

		// 住所検索（店舗登録フォーム用）
		r.Get("/api/geocode", geocodeHandler.Lookup)
	})

	return r
}
