// Package store は店舗登録・編集・一覧のドメインロジックを提供する。
package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// SlugFinder は既存Slugのサフィックス最大値の取得に必要なインターフェース。
// repository.StoreRepositoryの部分集合として定義する。
type SlugFinder interface {
	MaxSlugSuffix(ctx context.Context, base, excludeID string) (int, error)
}

// Slugify は表示名からURL-safeなSlugを導出する。
// 小文字化し、英数字以外の連続を単一のハイフンに置き換え、
// 先頭・末尾のハイフンを取り除く。
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // 先頭のハイフンを抑制する

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// AssignSlug は表示名からSlugを割り当てる。
// ベースSlugに一致する既存Slugが無ければベースを、既存の最大サフィックスが
// Nならbase-(N+1)を返す（ベースそのものはN=1と数える）。件数ではなく
// 最大値を使うのは、改名で歯抜けになった列（cafe-2だけが残る等）でも
// 使用済みSlugを再発行しないため。excludeIDが空でない場合（改名時）は
// その店舗自身を走査に含めない。
// 同名の同時作成はサフィックスが衝突しうるが、破壊的ではないため許容する。
func AssignSlug(ctx context.Context, name, excludeID string, finder SlugFinder) (string, error) {
	base := Slugify(name)
	if base == "" {
		return "", fmt.Errorf("店舗名からSlugを導出できません: %q", name)
	}

	max, err := finder.MaxSlugSuffix(ctx, base, excludeID)
	if err != nil {
		return "", fmt.Errorf("既存Slugの確認に失敗しました: %w", err)
	}

	if max == 0 {
		return base, nil
	}
	return fmt.Sprintf("%s-%d", base, max+1), nil
}
