// Package users persists user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/resourcehub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	Count(ctx context.Context) (int64, error)
}
