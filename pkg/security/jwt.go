package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenWrongType = errors.New("token has the wrong type")
)

type Claims struct {
	TokenType TokenType `json:"token_type"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	jwt.RegisteredClaims
}

// Signer issues and checks HS256 access and refresh tokens
type Signer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewSigner(secret string, accessTTL, refreshTTL time.Duration) *Signer {
	return &Signer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Sign issues a token of the given type, returning the claims it carries
func (s *Signer) Sign(typ TokenType, userID, email string) (string, *Claims, error) {
	ttl := s.accessTTL
	if typ == RefreshToken {
		ttl = s.refreshTTL
	}

	now := s.now()
	claims := &Claims{
		TokenType: typ,
		UserID:    userID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", typ, err)
	}

	return tokenStr, claims, nil
}

// Pair issues an access and a refresh token for the same account
func (s *Signer) Pair(userID, email string) (access, refresh string, err error) {
	access, _, err = s.Sign(AccessToken, userID, email)
	if err != nil {
		return "", "", err
	}

	refresh, _, err = s.Sign(RefreshToken, userID, email)
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

// Parse verifies the signature and lifetime of tokenStr
func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if !token.Valid || claims.UserID == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// ParseAs is Parse plus a check of the token_type claim
func (s *Signer) ParseAs(tokenStr string, typ TokenType) (*Claims, error) {
	claims, err := s.Parse(tokenStr)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != typ {
		return nil, ErrTokenWrongType
	}

	return claims, nil
}
