package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims identifies the organizer making a request and the events they may manage
type TokenClaims struct {
	UserID   int64   `json:"user_id"`
	EventIDs []int64 `json:"event_ids,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs claims with HS256
func GenerateToken(userID int64, eventIDs []int64, secret, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:   userID,
		EventIDs: eventIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateAndParseToken checks signature and expiry
func ValidateAndParseToken(tokenString, secret string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CanManageEvent reports whether the token was issued for eventID. An empty list means all events.
func (c *TokenClaims) CanManageEvent(eventID int64) bool {
	if len(c.EventIDs) == 0 {
		return true
	}
	for _, id := range c.EventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}
