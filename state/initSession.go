package state

import (
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
)

// Session is the authenticated identity for the lifetime of the process,
// extracted from the access token the server issued. Role decides which
// decline flag flips optimistically on this side of a conversation.
type Session struct {
	UserID string
	Name   string
	Role   entity.Role
}

type sessionClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// InitSession verifies the RS256 access token against the server's public key
// and extracts the session identity.
func InitSession(token, publicKeyPath string) (*Session, error) {
	pubKeyBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, err
	}

	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return pubKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("access token rejected")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("access token has no subject")
	}

	session := &Session{
		UserID: sub,
		Name:   claims.Name,
		Role:   entity.Role(claims.Role),
	}

	log.Info().Str("userID", session.UserID).Str("role", string(session.Role)).Msg("session initialized")
	return session, nil
}
