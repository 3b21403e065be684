package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/todo-api/internal/model"
	"bitwise74/todo-api/pkg/metrics"
	"bitwise74/todo-api/pkg/security"
	"bitwise74/todo-api/pkg/validators"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gateway exchanges credentials for tokens and tokens for accounts
type Gateway struct {
	db              *gorm.DB
	hasher          security.Hasher
	signer          *security.Signer
	blacklist       security.Blacklist
	updateLastLogin bool
	now             func() time.Time
}

func NewGateway(db *gorm.DB, h security.Hasher, s *security.Signer, b security.Blacklist, updateLastLogin bool) *Gateway {
	return &Gateway{
		db:              db,
		hasher:          h,
		signer:          s,
		blacklist:       b,
		updateLastLogin: updateLastLogin,
		now:             time.Now,
	}
}

type TokenPair struct {
	Access  string
	Refresh string
	Account *model.Account
}

// Authenticate checks the credentials and issues an access/refresh pair.
// Unknown emails and wrong passwords both return ErrAuthentication.
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (*TokenPair, error) {
	email = validators.NormalizeEmail(email)

	var acc model.Account
	err := g.db.WithContext(ctx).Where("email = ?", email).First(&acc).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load account, %w", err)
	}

	// Runs against a dummy hash when the account doesn't exist
	ok, err := g.hasher.Verify(password, acc.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		metrics.AuthAttempts.WithLabelValues("bad_credentials").Inc()
		return nil, ErrAuthentication
	}

	if !acc.IsVerified {
		metrics.AuthAttempts.WithLabelValues("unverified").Inc()
		return nil, ErrUnverifiedAccount
	}

	access, refresh, err := g.signer.Pair(acc.ID, acc.Email)
	if err != nil {
		return nil, err
	}

	if g.updateLastLogin {
		now := g.now()
		if err := g.db.WithContext(ctx).Model(&acc).Update("last_login", now).Error; err != nil {
			zap.L().Warn("Failed to update last login", zap.String("userID", acc.ID), zap.Error(err))
		}
	}

	metrics.AuthAttempts.WithLabelValues("ok").Inc()
	return &TokenPair{Access: access, Refresh: refresh, Account: &acc}, nil
}

// Refresh issues a new access token. The refresh token itself is not rotated.
func (g *Gateway) Refresh(ctx context.Context, refresh string) (string, error) {
	claims, err := g.checkRefresh(ctx, refresh)
	if err != nil {
		return "", err
	}

	acc, err := g.loadAccount(ctx, claims.UserID, false)
	if err != nil {
		return "", err
	}

	access, _, err := g.signer.Sign(security.AccessToken, acc.ID, acc.Email)
	return access, err
}

// Verify reports whether token is a valid token of either type
func (g *Gateway) Verify(token string) (*security.Claims, error) {
	claims, err := g.signer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return claims, nil
}

// Blacklist revokes a refresh token until it expires
func (g *Gateway) Blacklist(ctx context.Context, refresh string) error {
	claims, err := g.checkRefresh(ctx, refresh)
	if err != nil {
		return err
	}

	if err := g.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to blacklist token, %w", err)
	}

	return nil
}

// Identify resolves an access token to a verified account with its profile
func (g *Gateway) Identify(ctx context.Context, access string) (*model.Account, error) {
	claims, err := g.signer.ParseAs(access, security.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return g.loadAccount(ctx, claims.UserID, true)
}

func (g *Gateway) checkRefresh(ctx context.Context, refresh string) (*security.Claims, error) {
	claims, err := g.signer.ParseAs(refresh, security.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	revoked, err := g.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist, %w", err)
	}

	if revoked {
		return nil, fmt.Errorf("%w: token is blacklisted", ErrUnauthorized)
	}

	return claims, nil
}

func (g *Gateway) loadAccount(ctx context.Context, id string, withProfile bool) (*model.Account, error) {
	q := g.db.WithContext(ctx)
	if withProfile {
		q = q.Preload("Profile")
	}

	var acc model.Account
	if err := q.Where("id = ?", id).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", ErrUnauthorized)
		}

		return nil, fmt.Errorf("failed to load account, %w", err)
	}

	if !acc.IsVerified {
		return nil, ErrUnverifiedAccount
	}

	return &acc, nil
}
