package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Issuer   = "practitrack"
	Audience = "practitrack-mobile"
)

type StudentIdentity struct {
	ID       int
	UserName string
	Email    string
	DeviceID string
}

// Identity carries the claim names the mobile app already sends.
type Identity struct {
	ID         int    `json:"nameid"`
	UniqueName string `json:"unique_name"`
	Email      string `json:"email"`
	SID        string `json:"sid"`
	Role       string `json:"role"`
}

type IdentityClaims struct {
	Identity
	jwt.RegisteredClaims
}

// CreateStudentToken signs an HS256 token for a student.
func CreateStudentToken(identity *StudentIdentity, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("signing secret is empty")
	}
	if identity.ID <= 0 {
		return "", fmt.Errorf("invalid student id %d", identity.ID)
	}
	now := time.Now()
	claims := IdentityClaims{
		Identity: Identity{
			ID:         identity.ID,
			UniqueName: identity.UserName,
			Email:      identity.Email,
			SID:        identity.DeviceID,
			Role:       "student",
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  []string{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
