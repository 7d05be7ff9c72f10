package bootstrap

import (
	"context"
	"errors"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	userRepo "anoa.com/shuttleapi/internal/modules/user/repository"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/logger"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Post{},
		&entity.Comment{},
		&entity.Like{},
		&entity.Notification{},
	)
}

// SeedDevUsers creates two local accounts whose user ids can be used as token
// subjects during development. Existing handles are left untouched.
func SeedDevUsers(ctx context.Context, repo userRepo.UserRepository) error {
	devUsers := []entity.User{
		{
			Handle:   "alice",
			UserID:   "dev-alice",
			Email:    "alice@example.com",
			ImageURL: "https://ui-avatars.com/api/?name=Alice&background=random",
		},
		{
			Handle:   "bob",
			UserID:   "dev-bob",
			Email:    "bob@example.com",
			ImageURL: "https://ui-avatars.com/api/?name=Bob&background=random",
		},
	}

	for _, user := range devUsers {
		_, err := repo.FindByHandle(ctx, user.Handle)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		user.CreatedAt = time.Now().UTC()
		if err := repo.Save(ctx, &user); err != nil {
			return err
		}
		logger.Info().Str("handle", user.Handle).Str("user_id", user.UserID).Msg("dev user seeded")
	}

	return nil
}
