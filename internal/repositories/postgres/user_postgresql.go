package postgres

import (
	"context"

	"github.com/certlab/analysis-service/internal/models"
	"github.com/certlab/analysis-service/internal/repositories"
	"gorm.io/gorm"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u UserPostgreSQL) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// eligibleUsersQuery selects active users with at least one completed attempt
// whose latest report is absent or expired. Expiry is a lazy timestamp
// comparison here; nothing ever deletes expired rows.
func (u UserPostgreSQL) eligibleUsersQuery(ctx context.Context) *gorm.DB {
	return u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("users.is_active = ?", true).
		Where("EXISTS (SELECT 1 FROM quiz_attempts a WHERE a.user_id = users.id AND a.completed_at IS NOT NULL)").
		Where("NOT EXISTS (SELECT 1 FROM analysis_reports r WHERE r.user_id = users.id AND r.latest = TRUE AND r.expires_at > NOW())")
}

func (u UserPostgreSQL) FindEligibleUsers(ctx context.Context, excluding map[uint]struct{}) ([]uint, error) {
	query := u.eligibleUsersQuery(ctx).Order("users.id ASC")

	if len(excluding) > 0 {
		excluded := make([]uint, 0, len(excluding))
		for id := range excluding {
			excluded = append(excluded, id)
		}
		query = query.Where("users.id NOT IN ?", excluded)
	}

	var ids []uint
	if err := query.Pluck("users.id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (u UserPostgreSQL) CountEligibleUsers(ctx context.Context) (int, error) {
	var count int64
	if err := u.eligibleUsersQuery(ctx).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
