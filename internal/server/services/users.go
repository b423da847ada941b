package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/cryptox"
	"github.com/dmitrijs2005/herdsync/internal/server/auth"
	"github.com/dmitrijs2005/herdsync/internal/server/metrics"
	"github.com/dmitrijs2005/herdsync/internal/server/models"
	"github.com/dmitrijs2005/herdsync/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

// dummySalt and dummyVerifier let Authenticate hash a password for unknown
// emails too, so the response time does not reveal whether an account exists.
var (
	dummySalt     = common.GenerateRandByteArray(cryptox.SaltSize)
	dummyVerifier = make([]byte, 32)
)

type registerInput struct {
	Name     string `validate:"required,max=200"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=6,max=256"`
}

type authenticateInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// UserService registers accounts and exchanges credentials for access tokens.
type UserService struct {
	repomanager   repomanager.RepositoryManager
	validate      *validator.Validate
	metrics       *metrics.Metrics
	jwtSecret     []byte
	tokenValidity time.Duration
}

func NewUserService(m repomanager.RepositoryManager, secret []byte, tokenValidity time.Duration, mt *metrics.Metrics) *UserService {
	return &UserService{
		repomanager:   m,
		validate:      newValidator(),
		metrics:       mt,
		jwtSecret:     secret,
		tokenValidity: tokenValidity,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the account and returns an access token for it. A taken
// email yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, name, email, password string) (string, error) {
	in := registerInput{Name: strings.TrimSpace(name), Email: normalizeEmail(email), Password: password}
	if err := s.validate.Struct(in); err != nil {
		return "", validationError("register", err)
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)
	salt, verifier := cryptox.NewVerifier(pw)

	var user *models.User
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx repomanager.RepositoryManager) error {
		var err error
		user, err = tx.Users().Create(ctx, &models.User{Name: in.Name, Email: in.Email, Salt: salt, Verifier: verifier})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return "", fmt.Errorf("email %s: %w", in.Email, common.ErrorAlreadyExists)
		}
		return "", err
	}

	return s.issueToken(user.ID)
}

// Authenticate checks the credentials and returns a fresh access token.
// Unknown emails and wrong passwords both yield common.ErrorUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (string, error) {
	in := authenticateInput{Email: normalizeEmail(email), Password: password}
	if err := s.validate.Struct(in); err != nil {
		return "", validationError("authenticate", err)
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	user, err := s.repomanager.Users().GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.CheckPassword(pw, dummySalt, dummyVerifier)
			s.metrics.RecordAuthFailure("unknown_user")
			return "", common.ErrorUnauthorized
		}
		return "", err
	}

	if !cryptox.CheckPassword(pw, user.Salt, user.Verifier) {
		s.metrics.RecordAuthFailure("bad_password")
		return "", common.ErrorUnauthorized
	}

	return s.issueToken(user.ID)
}

func (s *UserService) issueToken(userID string) (string, error) {
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", common.ErrorInternal, err)
	}
	return token, nil
}
