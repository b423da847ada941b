// Package client is the transport between the local sync engine and the
// remote authority.
//
// Two implementations satisfy the Client contract: HTTPClient speaks the
// REST endpoint pair per entity (POST /sync/{entity}/push and
// GET /sync/{entity}/pull) and GRPCClient carries the same JSON payloads over
// gRPC. Both attach the bearer token set with SetToken and map failures to
// the sentinels in errors.go, so callers only ever match with errors.Is:
//
//   - ErrUnauthorized: the token was refused (401/403, Unauthenticated).
//   - ErrUnavailable: network failure, timeout or a 5xx.
//   - ErrRejected: any other 4xx; the batch is kept for retry.
package client
