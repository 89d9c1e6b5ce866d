package auth

import (
	"testing"
	"time"

	apperrors "tab-live/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTokenService_Round_Trip(t *testing.T) {
	req := require.New(t)
	service := NewTokenService("secret", "tab-live")
	userID := uuid.New()

	// Given a freshly signed token
	token, err := service.GenerateToken(userID, time.Hour)
	req.NoError(err)

	// When it is parsed back
	claims, err := service.ParseToken(token)

	// Then the claims identify the same user
	req.NoError(err)
	req.Equal(userID.String(), claims.UserID)
	req.Equal("tab-live", claims.Issuer)
}

func TestTokenService_Rejects_Wrong_Secret(t *testing.T) {
	req := require.New(t)
	issuing := NewTokenService("secret", "tab-live")
	verifying := NewTokenService("other-secret", "tab-live")

	token, err := issuing.GenerateToken(uuid.New(), time.Hour)
	req.NoError(err)

	// When a service holding another key parses it
	_, err = verifying.ParseToken(token)

	// Then the token is refused
	req.Error(err)
}

func TestTokenService_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	service := NewTokenService("secret", "tab-live")

	// Given a token that expired an hour ago
	token, err := service.GenerateToken(uuid.New(), -time.Hour)
	req.NoError(err)

	// When it is parsed
	_, err = service.ParseToken(token)

	// Then the expiration is enforced
	req.Error(err)
}

func TestBearerValidator_Accepts_Prefixed_And_Bare_Tokens(t *testing.T) {
	req := require.New(t)
	service := NewTokenService("secret", "tab-live")
	validator := NewBearerValidator(service)
	userID := uuid.New()

	token, err := service.GenerateToken(userID, time.Hour)
	req.NoError(err)

	// When the header carries the Bearer prefix
	resolved, err := validator.Validate("Bearer " + token)
	req.NoError(err)
	req.Equal(userID, resolved)

	// When the header carries the raw token
	resolved, err = validator.Validate(token)
	req.NoError(err)
	req.Equal(userID, resolved)
}

func TestBearerValidator_Refuses_Missing_Header(t *testing.T) {
	req := require.New(t)
	validator := NewBearerValidator(NewTokenService("secret", "tab-live"))

	_, err := validator.Validate("")

	req.ErrorIs(err, apperrors.ErrAuthenticationFailed)
}

func TestBearerValidator_Refuses_Garbage_Token(t *testing.T) {
	req := require.New(t)
	validator := NewBearerValidator(NewTokenService("secret", "tab-live"))

	_, err := validator.Validate("Bearer not-a-jwt")

	req.ErrorIs(err, apperrors.ErrAuthenticationFailed)
}
