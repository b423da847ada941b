package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/herdsync/internal/client/client"
	"github.com/dmitrijs2005/herdsync/internal/client/session"
)

// AuthService defines authentication operations for the CLI.
//
// Register and Login start a fresh session on success; Logout wipes the
// local store. All methods honor context cancellation.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) error
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	LoggedIn() bool
	Ping(ctx context.Context) error
}

type authService struct {
	client  client.Client
	session *session.Session
}

func NewAuthService(c client.Client, s *session.Session) AuthService {
	return &authService{client: c, session: s}
}

func (a *authService) Register(ctx context.Context, name, email, password string) error {
	token, err := a.client.Register(ctx, strings.TrimSpace(name), strings.TrimSpace(email), password)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return a.session.Login(ctx, token)
}

func (a *authService) Login(ctx context.Context, email, password string) error {
	token, err := a.client.Authenticate(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return a.session.Login(ctx, token)
}

func (a *authService) Logout(ctx context.Context) error {
	return a.session.Logout(ctx)
}

func (a *authService) LoggedIn() bool {
	return a.session.LoggedIn()
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
