// Package common contains shared constants and sentinel errors used across
// herdsync components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// SyncTimeHeaderName carries the server clock captured before a pull or push
// was processed. Clients advance their checkpoints to this value.
const SyncTimeHeaderName = "X-Sync-Time"

// SyncTimeMetadataName is the gRPC trailer counterpart of SyncTimeHeaderName.
const SyncTimeMetadataName = "x-sync-time"
