package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cleiver/Now-Thats-Delicious/internal/auth"
	"github.com/cleiver/Now-Thats-Delicious/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn           func(ctx context.Context, input auth.RegisterInput) (*model.Session, error)
	loginFn              func(ctx context.Context, email, password string) (*model.Session, error)
	logoutFn             func(ctx context.Context, sessionID string) error
	getCurrentUserFn     func(ctx context.Context, sessionID string) (*model.User, error)
	forgotFn             func(ctx context.Context, email string) error
	validateResetTokenFn func(ctx context.Context, token string) error
	resetFn              func(ctx context.Context, token, password, passwordConfirm string) (*model.Session, error)
}

func (m *mockAuthService) Register(ctx context.Context, input auth.RegisterInput) (*model.Session, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, errors.New("not found")
}

func (m *mockAuthService) Forgot(ctx context.Context, email string) error {
	if m.forgotFn != nil {
		return m.forgotFn(ctx, email)
	}
	return nil
}

func (m *mockAuthService) ValidateResetToken(ctx context.Context, token string) error {
	if m.validateResetTokenFn != nil {
		return m.validateResetTokenFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) Reset(ctx context.Context, token, password, passwordConfirm string) (*model.Session, error) {
	if m.resetFn != nil {
		return m.resetFn(ctx, token, password, passwordConfirm)
	}
	return nil, nil
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		CookieDomain:  "",
		CookieSecure:  false,
		SessionMaxAge: 86400,
	}
}

// findCookie はレスポンスから指定した名前のCookieを探すヘルパー。
func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- POST /auth/register テスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.Session, error) {
			if input.Email != "wes@example.com" {
				t.Errorf("email = %q, want %q", input.Email, "wes@example.com")
			}
			if input.Name != "Wes" {
				t.Errorf("name = %q, want %q", input.Name, "Wes")
			}
			return &model.Session{
				ID:        "session-abc",
				UserID:    "user-1",
				ExpiresAt: time.Now().Add(24 * time.Hour),
			}, nil
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"name":"Wes","email":"wes@example.com","password":"secret","password_confirm":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	cookie := findCookie(t, resp, sessionCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if cookie.Value != "session-abc" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "session-abc")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	var result sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", result.UserID, "user-1")
	}
}

func TestAuthHandler_Register_DuplicateEmail_Returns409(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.Session, error) {
			return nil, model.NewDuplicateEmailError()
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"name":"Wes","email":"wes@example.com","password":"secret","password_confirm":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeDuplicateEmail {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeDuplicateEmail)
	}
}

func TestAuthHandler_Register_ValidationError_Returns422(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.Session, error) {
			return nil, model.NewValidationError("名前を入力してください。")
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestAuthHandler_Register_InvalidJSON_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{invalid"))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- POST /auth/login テスト ---

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			if email != "wes@example.com" || password != "secret" {
				t.Errorf("unexpected credentials: %q / %q", email, password)
			}
			return &model.Session{ID: "session-login", UserID: "user-1"}, nil
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email":"wes@example.com","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if cookie := findCookie(t, resp, sessionCookieName); cookie == nil || cookie.Value != "session-login" {
		t.Error("expected session cookie to be set with session ID")
	}
}

func TestAuthHandler_Login_InvalidCredentials_Returns401(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email":"wes@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeInvalidCredentials)
	}
}

// --- POST /auth/logout テスト ---

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	logoutCalled := false
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			logoutCalled = true
			if sessionID != "session-to-delete" {
				t.Errorf("sessionID = %q, want %q", sessionID, "session-to-delete")
			}
			return nil
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-to-delete"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !logoutCalled {
		t.Error("expected Logout to be called")
	}

	cookie := findCookie(t, resp, sessionCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie to be cleared")
	}
	if cookie.MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cookie.MaxAge)
	}
}

func TestAuthHandler_Logout_ClearsCookieEvenOnServiceError(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			return errors.New("db error")
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "broken-session"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	cookie := findCookie(t, resp, sessionCookieName)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Error("expected session cookie to be cleared even on service error")
	}
}

// --- GET /auth/me テスト ---

func TestAuthHandler_Me_Success(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return &model.User{
				ID:     "user-1",
				Email:  "wes@example.com",
				Name:   "Wes",
				Hearts: []string{"store-1", "store-2"},
			}, nil
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-session"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["id"] != "user-1" {
		t.Errorf("id = %v, want %q", result["id"], "user-1")
	}
	hearts, ok := result["hearts"].([]any)
	if !ok || len(hearts) != 2 {
		t.Errorf("hearts = %v, want 2 items", result["hearts"])
	}
}

func TestAuthHandler_Me_NoCookie_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- POST /auth/forgot テスト ---

func TestAuthHandler_Forgot_Success(t *testing.T) {
	svc := &mockAuthService{
		forgotFn: func(ctx context.Context, email string) error {
			if email != "wes@example.com" {
				t.Errorf("email = %q, want %q", email, "wes@example.com")
			}
			return nil
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email":"wes@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/forgot", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Forgot(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestAuthHandler_Forgot_UnknownEmail_Returns404(t *testing.T) {
	svc := &mockAuthService{
		forgotFn: func(ctx context.Context, email string) error {
			return model.NewEmailNotFoundError()
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email":"nobody@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/forgot", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Forgot(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeEmailNotFound {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeEmailNotFound)
	}
}

// --- /auth/reset/{token} テスト ---

func TestAuthHandler_CheckReset_ValidToken(t *testing.T) {
	svc := &mockAuthService{
		validateResetTokenFn: func(ctx context.Context, token string) error {
			if token != "valid-token" {
				t.Errorf("token = %q, want %q", token, "valid-token")
			}
			return nil
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/reset/valid-token", nil)
	req = withChiURLParam(req, "token", "valid-token")
	w := httptest.NewRecorder()

	h.CheckReset(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestAuthHandler_CheckReset_InvalidToken_Returns400(t *testing.T) {
	svc := &mockAuthService{
		validateResetTokenFn: func(ctx context.Context, token string) error {
			return model.NewResetTokenInvalidError()
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/reset/expired", nil)
	req = withChiURLParam(req, "token", "expired")
	w := httptest.NewRecorder()

	h.CheckReset(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_Reset_Success_SetsSessionCookie(t *testing.T) {
	svc := &mockAuthService{
		resetFn: func(ctx context.Context, token, password, passwordConfirm string) (*model.Session, error) {
			if token != "reset-token" {
				t.Errorf("token = %q, want %q", token, "reset-token")
			}
			if password != "newpass" || passwordConfirm != "newpass" {
				t.Errorf("unexpected passwords: %q / %q", password, passwordConfirm)
			}
			return &model.Session{ID: "session-after-reset", UserID: "user-1"}, nil
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"password":"newpass","password_confirm":"newpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/reset/reset-token", bytes.NewBufferString(body))
	req = withChiURLParam(req, "token", "reset-token")
	w := httptest.NewRecorder()

	h.Reset(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if cookie := findCookie(t, resp, sessionCookieName); cookie == nil || cookie.Value != "session-after-reset" {
		t.Error("expected session cookie after password reset")
	}
}
