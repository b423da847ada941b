// Package models holds the records kept by the server: accounts and the
// per-user herd and bovine collections.
package models

import "time"

type User struct {
	ID        string
	Name      string
	Email     string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
