package rpc

import (
	"encoding/json"
	"time"
)

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// PushRequest carries one batch for an entity type. Data holds the same JSON
// array the HTTP API accepts under "data".
type PushRequest struct {
	Entity string          `json:"entity"`
	Data   json.RawMessage `json:"data"`
}

type PushResponse struct {
	Data       json.RawMessage `json:"data"`
	ServerTime time.Time       `json:"serverTime"`
}

type PullRequest struct {
	Entity string     `json:"entity"`
	Since  *time.Time `json:"since,omitempty"`
}

type PullResponse struct {
	Data       json.RawMessage `json:"data"`
	ServerTime time.Time       `json:"serverTime"`
}
