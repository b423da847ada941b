package models

import (
	"errors"
	"time"
)

// Entity names a synchronized collection. The value is the path segment in
// /sync/{entity}/push and the Entity field of the gRPC messages.
type Entity string

const (
	EntityHerds   Entity = "herds"
	EntityBovines Entity = "bovines"
)

var ErrUnknownEntity = errors.New("unknown entity")

func ParseEntity(s string) (Entity, error) {
	switch Entity(s) {
	case EntityHerds, EntityBovines:
		return Entity(s), nil
	}
	return "", ErrUnknownEntity
}

// Herd as stored and as returned by a pull. Inactive herds are soft-deleted
// and still returned so clients learn about the deletion.
type Herd struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	ClientRef string    `json:"clientRef,omitempty"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Bovine as stored and as returned by a pull.
type Bovine struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"-"`
	ClientRef   string    `json:"clientRef,omitempty"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Gender      string    `json:"gender"`
	Breed       string    `json:"breed,omitempty"`
	Weight      *float64  `json:"weight,omitempty"`
	BirthDate   string    `json:"birthDate,omitempty"`
	Description string    `json:"description,omitempty"`
	HerdID      *int64    `json:"herdId"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HerdInput is one herd in a push batch. A nil ID asks for a create.
type HerdInput struct {
	ID        *int64 `json:"id" validate:"omitempty,gt=0"`
	ClientRef string `json:"clientRef" validate:"max=64"`
	Name      string `json:"name" validate:"required,max=200"`
	Active    bool   `json:"active"`
}

// BovineInput is one bovine in a push batch.
type BovineInput struct {
	ID          *int64   `json:"id" validate:"omitempty,gt=0"`
	ClientRef   string   `json:"clientRef" validate:"max=64"`
	Name        string   `json:"name" validate:"required,max=200"`
	Status      string   `json:"status" validate:"required,oneof=ALIVE DEAD SOLD"`
	Gender      string   `json:"gender" validate:"required,oneof=MALE FEMALE"`
	Breed       string   `json:"breed" validate:"max=200"`
	Weight      *float64 `json:"weight" validate:"omitempty,gte=0"`
	BirthDate   string   `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Description string   `json:"description" validate:"max=2000"`
	HerdID      *int64   `json:"herdId" validate:"omitempty,gt=0"`
	Active      bool     `json:"active"`
}

// AckItem reports the identity assigned to one pushed record, in batch order.
type AckItem struct {
	ID        int64  `json:"id"`
	ClientRef string `json:"clientRef,omitempty"`
}
