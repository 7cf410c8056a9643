// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, query, store, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeStoreNotFound      = "STORE_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeEmailNotFound      = "EMAIL_NOT_FOUND"
	ErrCodeNotStoreAuthor     = "NOT_STORE_AUTHOR"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidQuery       = "INVALID_QUERY"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeResetTokenInvalid  = "RESET_TOKEN_INVALID"
	ErrCodePhotoNotAllowed    = "PHOTO_TYPE_NOT_ALLOWED"
	ErrCodeGeocodeFailed      = "GEOCODE_FAILED"
	ErrCodeAddressNotFound    = "ADDRESS_NOT_FOUND"
)

// NewStoreNotFoundError は店舗未検出エラーを生成する。
func NewStoreNotFoundError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreNotFound,
		Message:  fmt.Sprintf("指定された店舗が見つかりません: %s", key),
		Category: "store",
		Action:   "店舗の一覧から選び直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewEmailNotFoundError は指定メールアドレスのユーザーが存在しない場合のエラーを生成する。
func NewEmailNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotFound,
		Message:  "このメールアドレスは登録されていません。",
		Category: "auth",
		Action:   "登録時に使用したメールアドレスを入力してください。",
	}
}

// NewNotStoreAuthorError は作成者以外による店舗編集エラーを生成する。
func NewNotStoreAuthorError() *APIError {
	return &APIError{
		Code:     ErrCodeNotStoreAuthor,
		Message:  "店舗を編集できるのは登録した本人のみです。",
		Category: "auth",
		Action:   "自分が登録した店舗のみ編集できます。",
	}
}

// NewValidationError は入力検証エラーを生成する。
// messagesには項目ごとのユーザー向けメッセージを渡す。
func NewValidationError(messages ...string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  strings.Join(messages, " "),
		Category: "validation",
		Action:   "入力内容を修正して再度お試しください。",
	}
}

// NewInvalidQueryError は不正な検索クエリエラーを生成する。
// 座標の形式不正や空の検索語で使用する。
func NewInvalidQueryError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf("検索条件が不正です: %s", reason),
		Category: "query",
		Action:   "検索条件を確認して再度お試しください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレス不明とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewResetTokenInvalidError はリセットトークンが無効または期限切れの場合のエラーを生成する。
func NewResetTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeResetTokenInvalid,
		Message:  "パスワードリセットのトークンが無効か、期限切れです。",
		Category: "auth",
		Action:   "もう一度パスワードリセットを申請してください。",
	}
}

// NewPhotoNotAllowedError は画像以外のファイルアップロードエラーを生成する。
func NewPhotoNotAllowedError(contentType string) *APIError {
	return &APIError{
		Code:     ErrCodePhotoNotAllowed,
		Message:  fmt.Sprintf("このファイル形式はアップロードできません: %s", contentType),
		Category: "validation",
		Action:   "画像ファイル（image/*）を選択してください。",
	}
}

// NewGeocodeFailedError はジオコーディング失敗エラーを生成する。
func NewGeocodeFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeGeocodeFailed,
		Message:  fmt.Sprintf("住所の座標変換に失敗しました: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewAddressNotFoundError は住所が見つからない場合のエラーを生成する。
func NewAddressNotFoundError(address string) *APIError {
	return &APIError{
		Code:     ErrCodeAddressNotFound,
		Message:  fmt.Sprintf("指定された住所が見つかりません: %s", address),
		Category: "query",
		Action:   "住所の表記を変えて再度お試しください。",
	}
}
