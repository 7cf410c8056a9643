// Package storage は店舗写真の保存を提供する。
package storage

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cleiver/Now-Thats-Delicious/internal/model"
)

// allowedPhotoTypes は受け入れる画像のMIMEタイプと拡張子の対応。
var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// PhotoStore は写真の保存インターフェース。
// Saveは保存したファイル名（パスではない）を返す。
type PhotoStore interface {
	Save(r io.Reader, contentType string) (string, error)
}

// FilesystemPhotoStore はローカルファイルシステムに写真を保存するPhotoStore実装。
type FilesystemPhotoStore struct {
	dir string
}

// NewFilesystemPhotoStore は保存先ディレクトリを作成してFilesystemPhotoStoreを生成する。
func NewFilesystemPhotoStore(dir string) (*FilesystemPhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("アップロードディレクトリの作成に失敗しました: %w", err)
	}
	return &FilesystemPhotoStore{dir: dir}, nil
}

var _ PhotoStore = (*FilesystemPhotoStore)(nil)

// Dir は保存先ディレクトリを返す。静的配信ハンドラの設定に使う。
func (s *FilesystemPhotoStore) Dir() string {
	return s.dir
}

// Save は画像を一意なファイル名で保存し、ファイル名を返す。
// 画像以外のMIMEタイプはPHOTO_TYPE_NOT_ALLOWEDとして拒否する。
func (s *FilesystemPhotoStore) Save(r io.Reader, contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", model.NewPhotoNotAllowedError(contentType)
	}
	ext, ok := allowedPhotoTypes[strings.ToLower(mediaType)]
	if !ok {
		return "", model.NewPhotoNotAllowedError(mediaType)
	}

	filename := uuid.New().String() + ext
	path := filepath.Join(s.dir, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("写真ファイルの作成に失敗しました: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("写真の書き込みに失敗しました: %w", err)
	}

	slog.Info("photo saved", slog.String("filename", filename))
	return filename, nil
}
