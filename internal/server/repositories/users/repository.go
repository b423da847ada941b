// Package users persists accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/herdsync/internal/server/models"
)

// LockMode selects the row lock Lock takes on an account.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

// Repository stores accounts. GetByEmail returns common.ErrorNotFound for an
// unknown address; Create returns common.ErrorAlreadyExists when the address
// is taken. Emails compare case-insensitively.
//
// Lock holds a row lock on the account until the surrounding transaction
// ends. Pushes lock exclusively and pulls shared, so a pull never runs while
// a push for the same account is uncommitted.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Lock(ctx context.Context, id string, mode LockMode) error
}
