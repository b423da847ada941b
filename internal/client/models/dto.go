package models

import "time"

// HerdPush is the wire shape of a herd in a push batch. A nil ID asks the
// remote authority to create the record.
type HerdPush struct {
	ID        *int64 `json:"id"`
	ClientRef string `json:"clientRef,omitempty"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
}

// HerdPull is the wire shape of a herd returned by a pull.
type HerdPull struct {
	ID        int64     `json:"id"`
	ClientRef string    `json:"clientRef,omitempty"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BovinePush is the wire shape of a bovine in a push batch. HerdID carries
// the herd's remote identity; local identities are never sent.
type BovinePush struct {
	ID          *int64   `json:"id"`
	ClientRef   string   `json:"clientRef,omitempty"`
	Name        string   `json:"name"`
	Status      Status   `json:"status"`
	Gender      Gender   `json:"gender"`
	Breed       string   `json:"breed,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	BirthDate   string   `json:"birthDate,omitempty"`
	Description string   `json:"description,omitempty"`
	HerdID      *int64   `json:"herdId"`
	Active      bool     `json:"active"`
}

// BovinePull is the wire shape of a bovine returned by a pull.
type BovinePull struct {
	ID          int64     `json:"id"`
	ClientRef   string    `json:"clientRef,omitempty"`
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Gender      Gender    `json:"gender"`
	Breed       string    `json:"breed,omitempty"`
	Weight      *float64  `json:"weight,omitempty"`
	BirthDate   string    `json:"birthDate,omitempty"`
	Description string    `json:"description,omitempty"`
	HerdID      *int64    `json:"herdId"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AckItem reports the remote identity assigned to one pushed record.
type AckItem struct {
	ID        int64  `json:"id"`
	ClientRef string `json:"clientRef,omitempty"`
}

// Ack is the acknowledgement of a push batch. Items may be empty when the
// remote authority does not echo identities; they are then learned on pull.
type Ack struct {
	Items []AckItem
}

// RemoteIDFor finds the identity assigned to the record pushed at position i.
// Matching by client reference wins; position is used only when the
// acknowledgement covers the whole batch.
func (a *Ack) RemoteIDFor(i int, clientRef string, batchSize int) (int64, bool) {
	if a == nil {
		return 0, false
	}
	if clientRef != "" {
		for _, it := range a.Items {
			if it.ClientRef == clientRef && it.ID != 0 {
				return it.ID, true
			}
		}
	}
	if len(a.Items) == batchSize && i < len(a.Items) && a.Items[i].ClientRef == "" && a.Items[i].ID != 0 {
		return a.Items[i].ID, true
	}
	return 0, false
}

// Batch is one push payload: a HerdBatch or a BovineBatch. It marshals to a
// JSON array of the entity's push shape.
type Batch interface {
	Entity() EntityType
	Len() int
	batch()
}

type HerdBatch []HerdPush

func (HerdBatch) Entity() EntityType { return EntityHerds }
func (b HerdBatch) Len() int         { return len(b) }
func (HerdBatch) batch()             {}

type BovineBatch []BovinePush

func (BovineBatch) Entity() EntityType { return EntityBovines }
func (b BovineBatch) Len() int         { return len(b) }
func (BovineBatch) batch()             {}
