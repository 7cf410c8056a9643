// Package auth はパスワード認証、セッション管理、パスワードリセットを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
	"github.com/cleiver/Now-Thats-Delicious/internal/repository"
)

// resetTokenTTL はパスワードリセットトークンの有効期間。
const resetTokenTTL = time.Hour

// MailSender はパスワードリセットメールの送信インターフェース。
// 送信の失敗はこのコアとは独立に扱われる（配送の仕組みはスコープ外）。
type MailSender interface {
	SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int    // セッション有効期間（秒）
	BaseURL       string // リセットURLの組み立てに使用する
}

// RegisterInput はユーザー登録フォームの入力を表す。
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	mailer      MailSender
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	mailer MailSender,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		mailer:      mailer,
		config:      config,
	}
}

// Register は新規ユーザーを登録し、セッションを発行する。
// 入力検証エラーは項目ごとのメッセージをまとめて返す。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.Session, error) {
	if err := validateRegisterInput(&input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, err
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
	)

	return s.createSession(ctx, user.ID)
}

// Login はメールアドレスとパスワードを検証し、セッションを発行する。
// ユーザー不明とパスワード不一致は区別せずInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return s.createSession(ctx, user.ID)
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// Forgot はパスワードリセットトークンを発行し、リセットURLをメールで送る。
// トークンは1時間で失効し、同時に有効なトークンは1つだけ。
func (s *Service) Forgot(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if user == nil {
		return model.NewEmailNotFoundError()
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("リセットトークンの生成に失敗しました: %w", err)
	}

	expires := time.Now().Add(resetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/account/reset/%s", strings.TrimRight(s.config.BaseURL, "/"), token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, resetURL); err != nil {
		return fmt.Errorf("リセットメールの送信に失敗しました: %w", err)
	}

	slog.Info("password reset token issued",
		slog.String("user_id", user.ID),
		slog.Time("expires_at", expires),
	)

	return nil
}

// ValidateResetToken はリセットトークンが有効かどうかを確認する。
// 無効または期限切れの場合はResetTokenInvalidを返す。
func (s *Service) ValidateResetToken(ctx context.Context, token string) error {
	if token == "" {
		return model.NewResetTokenInvalidError()
	}

	user, err := s.userRepo.FindByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if user == nil {
		return model.NewResetTokenInvalidError()
	}
	return nil
}

// Reset は有効なトークンでパスワードを更新し、トークンをクリアして
// そのままログインセッションを発行する。
func (s *Service) Reset(ctx context.Context, token, password, passwordConfirm string) (*model.Session, error) {
	if password == "" {
		return nil, model.NewValidationError("新しいパスワードを入力してください。")
	}
	if password != passwordConfirm {
		return nil, model.NewValidationError("パスワードが一致しません。")
	}

	user, err := s.userRepo.FindByResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewResetTokenInvalidError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	if err := s.userRepo.ResetPassword(ctx, user.ID, string(hash)); err != nil {
		return nil, err
	}

	slog.Info("password reset completed", slog.String("user_id", user.ID))

	return s.createSession(ctx, user.ID)
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("セッションIDの生成に失敗しました: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}

	return session, nil
}

// validateRegisterInput は登録フォームの入力を検証し、正規化する。
func validateRegisterInput(input *RegisterInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)

	var messages []string
	if input.Name == "" {
		messages = append(messages, "名前を入力してください。")
	}
	if input.Email == "" {
		messages = append(messages, "メールアドレスを入力してください。")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		messages = append(messages, "メールアドレスの形式が正しくありません。")
	}
	if input.Password == "" {
		messages = append(messages, "パスワードを入力してください。")
	}
	if input.PasswordConfirm == "" {
		messages = append(messages, "確認用パスワードを入力してください。")
	} else if input.Password != input.PasswordConfirm {
		messages = append(messages, "パスワードが一致しません。")
	}

	if len(messages) > 0 {
		return model.NewValidationError(messages...)
	}
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generateResetToken は暗号的に安全なリセットトークンを生成する。
func generateResetToken() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
