package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const (
	seedUserCount    = 10
	seedStoreCount   = 30
	seedMaxReviews   = 5
	seedUserPassword = "password"
)

// seedTags は開発用データで使用するタグの候補。
var seedTags = []string{"Wifi", "Open Late", "Family Friendly", "Vegetarian", "Licensed"}

// Seed は開発用のダミーデータを投入する。
// ユーザー、店舗、レビュー、お気に入りを生成する。冪等ではないため、
// クリーンなデータベースに対して実行すること。
func Seed(ctx context.Context, db *sql.DB) error {
	fake := faker.New()

	userIDs, err := seedUsers(ctx, db, fake)
	if err != nil {
		return fmt.Errorf("ユーザーのシードに失敗しました: %w", err)
	}

	storeIDs, err := seedStores(ctx, db, fake, userIDs)
	if err != nil {
		return fmt.Errorf("店舗のシードに失敗しました: %w", err)
	}

	if err := seedReviews(ctx, db, fake, userIDs, storeIDs); err != nil {
		return fmt.Errorf("レビューのシードに失敗しました: %w", err)
	}

	if err := seedHearts(ctx, db, userIDs, storeIDs); err != nil {
		return fmt.Errorf("お気に入りのシードに失敗しました: %w", err)
	}

	slog.Info("seed completed",
		slog.Int("users", len(userIDs)),
		slog.Int("stores", len(storeIDs)),
	)

	return nil
}

func seedUsers(ctx context.Context, db *sql.DB, fake faker.Faker) ([]string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, seedUserCount)
	for i := 0; i < seedUserCount; i++ {
		id := uuid.New().String()
		firstName := fake.Person().FirstName()
		lastName := fake.Person().LastName()
		name := firstName + " " + lastName
		email := fmt.Sprintf("%s.%s%d@example.com",
			strings.ToLower(firstName), strings.ToLower(lastName), i)

		_, err := db.ExecContext(ctx,
			`INSERT INTO users (id, email, name, password_hash) VALUES ($1, $2, $3, $4)`,
			id, email, name, string(hash),
		)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedStores(ctx context.Context, db *sql.DB, fake faker.Faker, userIDs []string) ([]string, error) {
	ids := make([]string, 0, seedStoreCount)
	for i := 0; i < seedStoreCount; i++ {
		id := uuid.New().String()
		name := fake.Company().Name()
		slug := fmt.Sprintf("%s-%d", slugifyForSeed(name), i)
		description := fake.Lorem().Paragraph(2)
		address := fake.Address().Address()

		// 東京駅を中心に±0.1度程度散らす
		lng := 139.7671 + (rand.Float64()-0.5)*0.2
		lat := 35.6812 + (rand.Float64()-0.5)*0.2

		tags := pickTags()
		authorID := userIDs[rand.Intn(len(userIDs))]

		_, err := db.ExecContext(ctx,
			`INSERT INTO stores (id, name, slug, description, tags, lng, lat, address, author_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, name, slug, description, pq.Array(tags), lng, lat, address, authorID,
		)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedReviews(ctx context.Context, db *sql.DB, fake faker.Faker, userIDs, storeIDs []string) error {
	for _, storeID := range storeIDs {
		count := rand.Intn(seedMaxReviews + 1)
		for i := 0; i < count; i++ {
			_, err := db.ExecContext(ctx,
				`INSERT INTO reviews (id, store_id, author_id, text, rating) VALUES ($1, $2, $3, $4, $5)`,
				uuid.New().String(),
				storeID,
				userIDs[rand.Intn(len(userIDs))],
				fake.Lorem().Sentence(10),
				rand.Intn(5)+1,
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func seedHearts(ctx context.Context, db *sql.DB, userIDs, storeIDs []string) error {
	for _, userID := range userIDs {
		count := rand.Intn(4)
		for i := 0; i < count; i++ {
			_, err := db.ExecContext(ctx,
				`INSERT INTO user_hearts (user_id, store_id) VALUES ($1, $2)
				 ON CONFLICT (user_id, store_id) DO NOTHING`,
				userID, storeIDs[rand.Intn(len(storeIDs))],
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// slugifyForSeed は店名をシード用のSlugベースに変換する。
// 一意性はインデックス付与で担保するため簡易な変換で十分。
func slugifyForSeed(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// pickTags はランダムに1〜3個のタグを選ぶ。
func pickTags() []string {
	count := rand.Intn(3) + 1
	shuffled := make([]string, len(seedTags))
	copy(shuffled, seedTags)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count]
}
