package repositories

import (
	"context"

	"github.com/certlab/analysis-service/internal/models"
)

// UserRepository exposes the read-side user queries the refresh pipeline needs.
// This service is not the owner of user data.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)

	// FindEligibleUsers returns the IDs of users with at least one quiz attempt
	// and either no latest analysis report or an expired one, excluding the
	// given already-processed set. Order is stable (ascending ID) so repeated
	// invocations under the same day-key walk the population deterministically.
	FindEligibleUsers(ctx context.Context, excluding map[uint]struct{}) ([]uint, error)

	// CountEligibleUsers counts the same population without the exclusion set.
	CountEligibleUsers(ctx context.Context) (int, error)
}
