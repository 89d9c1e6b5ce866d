package auth

import (
	"fmt"
	"strings"

	apperrors "tab-live/errors"

	"github.com/google/uuid"
)

// BearerValidator resolves the Authorization header of the handshake
// into the authenticated user id. It accepts the raw token with or
// without the "Bearer " prefix, matching what the mobile clients send.
type BearerValidator struct {
	tokens *TokenService
}

func NewBearerValidator(tokens *TokenService) *BearerValidator {
	return &BearerValidator{tokens: tokens}
}

func (v *BearerValidator) Validate(authHeader string) (uuid.UUID, error) {
	if authHeader == "" {
		return uuid.Nil, fmt.Errorf("%w: missing Authorization header", apperrors.ErrAuthenticationFailed)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	claims, err := v.tokens.ParseToken(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", apperrors.ErrAuthenticationFailed, err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: token carries no valid user id", apperrors.ErrAuthenticationFailed)
	}
	return userID, nil
}
