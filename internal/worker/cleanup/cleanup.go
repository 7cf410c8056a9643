// Package cleanup は期限切れ認証データの自動削除ジョブを提供する。
// 期限切れセッションの削除と、期限切れパスワードリセットトークンの
// クリアを日次バッチで行う。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れ認証データの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:     db,
		logger: logger,
	}
}

// Run は期限切れセッションを削除し、期限切れリセットトークンをクリアする。
// 冪等: 対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessions, err := j.deleteExpiredSessions(ctx)
	if err != nil {
		return err
	}

	tokens, err := j.clearExpiredResetTokens(ctx)
	if err != nil {
		return err
	}

	duration := time.Since(start)
	j.logger.Info("認証データクリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessions),
		slog.Int64("cleared_reset_tokens", tokens),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// deleteExpiredSessions は有効期限を過ぎたセッションを削除する。
func (j *CleanupJob) deleteExpiredSessions(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return deleted, nil
}

// clearExpiredResetTokens は有効期限を過ぎたリセットトークンをクリアする。
// ユーザー行自体は削除しない。
func (j *CleanupJob) clearExpiredResetTokens(ctx context.Context) (int64, error) {
	query := `
		UPDATE users
		SET reset_token = NULL, reset_expires_at = NULL
		WHERE reset_token IS NOT NULL AND reset_expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("期限切れリセットトークンのクリアに失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れリセットトークンのクリアに失敗: %w", err)
	}

	cleared, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	return cleared, nil
}
