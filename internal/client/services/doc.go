// Package services contains the application services of the herdsync
// client: authentication, herd and bovine management and the dashboard.
//
// Every mutation writes to the local store right away, tags the record
// through the change tracker and asks the sync coordinator for a debounced
// sync. Saves and deletes therefore succeed offline.
package services

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateName = errors.New("an active herd with this name already exists")
)

// SyncRequester is notified after every local mutation.
type SyncRequester interface {
	RequestSync()
}

type noopRequester struct{}

func (noopRequester) RequestSync() {}

func requesterOrNoop(r SyncRequester) SyncRequester {
	if r == nil {
		return noopRequester{}
	}
	return r
}
