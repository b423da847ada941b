package models

// Herd is the parent entity.
type Herd struct {
	SyncMeta
	Name string
}
