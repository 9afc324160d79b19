package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-bracket/utils"
)

const DefaultTokenTTL = 12 * time.Hour

type AuthService interface {
	// IssueToken exchanges the organizer password for a signed bearer token.
	IssueToken(ctx context.Context, password string) (string, time.Time, error)
}

type authService struct {
	passwordHash string
	jwtSecret    []byte
	ttl          time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

func NewAuthService(passwordHash string, jwtSecret []byte, ttl time.Duration, logger *slog.Logger) AuthService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		ttl:          ttl,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *authService) IssueToken(ctx context.Context, password string) (string, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return "", time.Time{}, err
	}
	if password == "" {
		return "", time.Time{}, &ValidationError{Fields: map[string]string{"password": "password is required"}}
	}
	if s.passwordHash == "" {
		return "", time.Time{}, errors.Join(ErrAuthenticationFailed, errors.New("organizer password is not configured"))
	}
	if !utils.CheckPasswordHash(password, s.passwordHash) {
		s.logger.Warn("organizer login failed")
		return "", time.Time{}, ErrInvalidCredentials
	}

	return utils.GenerateJWT(s.jwtSecret, utils.RoleOrganizer, s.now(), s.ttl)
}
