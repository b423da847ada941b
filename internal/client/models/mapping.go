package models

// HerdToPush drops local-only fields.
func HerdToPush(h *Herd) HerdPush {
	return HerdPush{
		ID:        h.RemoteID,
		ClientRef: h.ClientRef,
		Name:      h.Name,
		Active:    h.Active,
	}
}

// BovineToPush drops local-only fields: the local herd key and lineage.
func BovineToPush(b *Bovine) BovinePush {
	return BovinePush{
		ID:          b.RemoteID,
		ClientRef:   b.ClientRef,
		Name:        b.Name,
		Status:      b.Status,
		Gender:      b.Gender,
		Breed:       b.Breed,
		Weight:      b.Weight,
		BirthDate:   b.BirthDate,
		Description: b.Description,
		HerdID:      b.HerdRemoteID,
		Active:      b.Active,
	}
}

// ApplyHerdPull overwrites mutable fields from the remote copy and marks the
// record synced.
func ApplyHerdPull(h *Herd, r HerdPull) {
	id := r.ID
	h.RemoteID = &id
	if h.ClientRef == "" {
		h.ClientRef = r.ClientRef
	}
	h.Name = r.Name
	h.Active = r.Active
	h.UpdatedAt = r.UpdatedAt.UTC()
	h.SyncState = SyncStateSynced
}

// HerdFromPull builds a fresh local record for an unmatched remote herd.
func HerdFromPull(r HerdPull) *Herd {
	h := &Herd{}
	ApplyHerdPull(h, r)
	return h
}

// ApplyBovinePull overwrites mutable fields from the remote copy. The local
// herd key is resolved by the caller; lineage is left untouched.
func ApplyBovinePull(b *Bovine, r BovinePull, herdLocalID *int64) {
	id := r.ID
	b.RemoteID = &id
	if b.ClientRef == "" {
		b.ClientRef = r.ClientRef
	}
	b.Name = r.Name
	b.Status = r.Status
	b.Gender = r.Gender
	b.Breed = r.Breed
	b.Weight = r.Weight
	b.BirthDate = r.BirthDate
	b.Description = r.Description
	b.HerdRemoteID = r.HerdID
	b.HerdLocalID = herdLocalID
	b.Active = r.Active
	b.UpdatedAt = r.UpdatedAt.UTC()
	b.SyncState = SyncStateSynced
}

// BovineFromPull builds a fresh local record for an unmatched remote bovine.
func BovineFromPull(r BovinePull, herdLocalID *int64) *Bovine {
	b := &Bovine{}
	ApplyBovinePull(b, r, herdLocalID)
	return b
}
