// Package models defines the locally cached records, their sync metadata and
// the wire shapes exchanged with the remote authority.
package models

import (
	"errors"
	"time"
)

// EntityType names a synchronized collection. The value doubles as the
// path segment in /sync/{entity}/push.
type EntityType string

const (
	EntityHerds   EntityType = "herds"
	EntityBovines EntityType = "bovines"
)

// SyncOrder lists entity types parents first.
var SyncOrder = []EntityType{EntityHerds, EntityBovines}

var ErrUnknownEntity = errors.New("unknown entity type")

func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityHerds, EntityBovines:
		return EntityType(s), nil
	}
	return "", ErrUnknownEntity
}

// Dependent reports whether records of this type reference a parent type.
func (e EntityType) Dependent() bool {
	return e == EntityBovines
}

// SyncState tags a record with what the next push has to do with it.
type SyncState string

const (
	SyncStateSynced  SyncState = "synced"
	SyncStateCreated SyncState = "created"
	SyncStateUpdated SyncState = "updated"
	SyncStateDeleted SyncState = "deleted"
)

// DirtyStates are the states that still need a push.
var DirtyStates = []SyncState{SyncStateCreated, SyncStateUpdated, SyncStateDeleted}

func (s SyncState) IsDirty() bool {
	return s == SyncStateCreated || s == SyncStateUpdated || s == SyncStateDeleted
}

// SyncMeta is the bookkeeping shared by every synchronized record.
//
// LocalID is assigned by the store and never reused. RemoteID is nil until
// the remote authority acknowledges the record. ClientRef is a UUID minted at
// creation and sent with every push so a retried create is recognized
// remotely.
type SyncMeta struct {
	LocalID   int64
	RemoteID  *int64
	ClientRef string
	Active    bool
	UpdatedAt time.Time
	SyncState SyncState
}

func (m *SyncMeta) Meta() *SyncMeta { return m }

// HasRemote reports whether the remote identity is known.
func (m *SyncMeta) HasRemote() bool { return m.RemoteID != nil }

// Record is implemented by every synchronized model.
type Record interface {
	Meta() *SyncMeta
}
