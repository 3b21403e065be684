package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"bitwise74/todo-api/internal/model"
	"bitwise74/todo-api/pkg/security"
	"bitwise74/todo-api/pkg/validators"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var ErrWrongPassword = errors.New("Wrong password.")

type LifecycleOptions struct {
	BaseURL        string
	ActivationTTL  time.Duration
	ResetTTL       time.Duration
	CleanupAfter   time.Duration // How long used or expired tokens are kept around
	UnverifiedTTL  time.Duration // Zero keeps unverified accounts forever
	ResendCooldown time.Duration
}

// Lifecycle takes accounts from registration to activation and through
// password resets and changes
type Lifecycle struct {
	db       *gorm.DB
	hasher   security.Hasher
	policy   *validators.PasswordPolicy
	notifier Notifier
	opts     LifecycleOptions
	now      func() time.Time
}

func NewLifecycle(db *gorm.DB, h security.Hasher, p *validators.PasswordPolicy, n Notifier, o LifecycleOptions) *Lifecycle {
	return &Lifecycle{
		db:       db,
		hasher:   h,
		policy:   p,
		notifier: n,
		opts:     o,
		now:      time.Now,
	}
}

// Register creates an unverified account with an empty profile and mails
// the activation link. A failed mail doesn't fail the registration, the
// user can ask for another one.
func (l *Lifecycle) Register(ctx context.Context, email, password, password1 string) (*model.Account, error) {
	fields := validators.FieldErrors{}

	if err := validators.EmailValidator(email); err != nil {
		fields.Add("email", err.Error())
	}

	email = validators.NormalizeEmail(email)

	if err := l.policy.ValidatePair("password", password, password1, validators.UserAttributes(email, "", "")); err != nil {
		var fe validators.FieldErrors
		if !errors.As(err, &fe) {
			return nil, err
		}

		fields.Merge(fe)
	}

	if len(fields) > 0 {
		return nil, invalid(fields)
	}

	var taken int64
	if err := l.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("email = ?", email).
		Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("failed to check if email is registered, %w", err)
	}

	if taken > 0 {
		return nil, invalidField("email", ErrEmailTaken)
	}

	hash, err := l.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	id, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate account ID, %w", err)
	}

	acc := &model.Account{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Profile:      model.Profile{AccountID: id},
	}

	if l.opts.UnverifiedTTL > 0 {
		expiry := l.now().Add(l.opts.UnverifiedTTL)
		acc.ExpiresAt = &expiry
	}

	var raw string
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(acc).Error; err != nil {
			return err
		}

		raw, err = l.issueToken(tx, id, model.PurposeActivation, l.opts.ActivationTTL)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidField("email", ErrEmailTaken)
		}

		return nil, fmt.Errorf("failed to create account, %w", err)
	}

	if err := l.notify(ctx, TemplateActivation, acc.Email, "/accounts/activation/confirm", raw, l.opts.ActivationTTL); err != nil {
		zap.L().Error("Failed to send activation mail", zap.String("userID", id), zap.Error(err))
	}

	return acc, nil
}

// RequestActivation sends a fresh activation link, invalidating older ones
func (l *Lifecycle) RequestActivation(ctx context.Context, email string) error {
	acc, err := l.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	if acc.IsVerified {
		return ErrAlreadyVerified
	}

	now := l.now()

	var raw string
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rr model.ResendRequest
		err := tx.Where("account_id = ?", acc.ID).First(&rr).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rr = model.ResendRequest{AccountID: acc.ID}
		case err != nil:
			return err
		case now.Sub(rr.LastResend) < l.opts.ResendCooldown:
			return ErrResendCooldown
		}

		rr.LastResend = now
		rr.Attempts++
		if err := tx.Save(&rr).Error; err != nil {
			return err
		}

		raw, err = l.issueToken(tx, acc.ID, model.PurposeActivation, l.opts.ActivationTTL)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrResendCooldown) {
			return err
		}

		return fmt.Errorf("failed to issue activation token, %w", err)
	}

	return l.notify(ctx, TemplateActivation, acc.Email, "/accounts/activation/confirm", raw, l.opts.ActivationTTL)
}

// Activate redeems an activation token and marks the account as verified
func (l *Lifecycle) Activate(ctx context.Context, raw string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tok, err := l.lookupToken(tx, raw, model.PurposeActivation)
		if err != nil {
			return err
		}

		if err := l.consume(tx, tok); err != nil {
			return err
		}

		return tx.Model(&model.Account{}).
			Where("id = ?", tok.AccountID).
			Updates(map[string]any{
				"is_verified": true,
				"expires_at":  nil,
			}).Error
	})
}

// RequestPasswordReset mails a reset link whether or not the account is
// verified
func (l *Lifecycle) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := l.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	var raw string
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raw, err = l.issueToken(tx, acc.ID, model.PurposePasswordReset, l.opts.ResetTTL)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to issue reset token, %w", err)
	}

	return l.notify(ctx, TemplatePasswordReset, acc.Email, "/accounts/reset-password/confirm", raw, l.opts.ResetTTL)
}

// RedeemReset validates the new password before looking at the token so
// that a bad password is reported even for a stale link
func (l *Lifecycle) RedeemReset(ctx context.Context, raw, password, password1 string) error {
	db := l.db.WithContext(ctx)

	tok, lookupErr := l.lookupToken(db, raw, model.PurposePasswordReset)

	var attrs validators.Attributes
	if lookupErr == nil {
		var acc model.Account
		if err := db.Preload("Profile").Where("id = ?", tok.AccountID).First(&acc).Error; err == nil {
			attrs = validators.UserAttributes(acc.Email, acc.Profile.FirstName, acc.Profile.LastName)
		}
	}

	if err := l.policy.ValidatePair("password", password, password1, attrs); err != nil {
		return asValidation(err)
	}

	if lookupErr != nil {
		return lookupErr
	}

	hash, err := l.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password, %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := l.consume(tx, tok); err != nil {
			return err
		}

		return tx.Model(&model.Account{}).
			Where("id = ?", tok.AccountID).
			Update("password_hash", hash).Error
	})
}

// ChangePassword replaces the password of a logged in account. The new
// pair is checked before the old password.
func (l *Lifecycle) ChangePassword(ctx context.Context, acc *model.Account, old, password, password1 string) error {
	attrs := validators.UserAttributes(acc.Email, acc.Profile.FirstName, acc.Profile.LastName)
	if err := l.policy.ValidatePair("new_password", password, password1, attrs); err != nil {
		return asValidation(err)
	}

	ok, err := l.hasher.Verify(old, acc.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return invalidField("old_password", ErrWrongPassword)
	}

	hash, err := l.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password, %w", err)
	}

	if err := l.db.WithContext(ctx).Model(acc).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password, %w", err)
	}

	return nil
}

func (l *Lifecycle) findByEmail(ctx context.Context, email string) (*model.Account, error) {
	var acc model.Account
	err := l.db.WithContext(ctx).
		Where("email = ?", validators.NormalizeEmail(email)).
		First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmailNotFound
		}

		return nil, fmt.Errorf("failed to load account, %w", err)
	}

	return &acc, nil
}

// issueToken revokes every unused token of the same purpose and stores a
// new one, returning the raw value
func (l *Lifecycle) issueToken(tx *gorm.DB, accountID, purpose string, ttl time.Duration) (string, error) {
	now := l.now()

	if err := tx.Model(&model.VerificationToken{}).
		Where("account_id = ? AND purpose = ? AND used = ?", accountID, purpose, false).
		Updates(map[string]any{
			"used":    true,
			"used_at": now,
		}).Error; err != nil {
		return "", err
	}

	raw, hash, err := security.NewOpaqueToken()
	if err != nil {
		return "", err
	}

	cleanupAt := now.Add(ttl + l.opts.CleanupAfter)
	tok := model.VerificationToken{
		AccountID: accountID,
		TokenHash: hash,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CleanupAt: &cleanupAt,
	}

	if err := tx.Create(&tok).Error; err != nil {
		return "", err
	}

	return raw, nil
}

func (l *Lifecycle) lookupToken(db *gorm.DB, raw, purpose string) (*model.VerificationToken, error) {
	if raw == "" {
		return nil, ErrTokenUnknown
	}

	var tok model.VerificationToken
	err := db.Where("token_hash = ? AND purpose = ?", security.HashToken(raw), purpose).First(&tok).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenUnknown
		}

		return nil, fmt.Errorf("failed to load token, %w", err)
	}

	if tok.Used {
		return nil, ErrTokenConsumed
	}

	if !l.now().Before(tok.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return &tok, nil
}

// consume marks tok as used. Only one concurrent caller can win.
func (l *Lifecycle) consume(tx *gorm.DB, tok *model.VerificationToken) error {
	r := tx.Model(&model.VerificationToken{}).
		Where("id = ? AND used = ?", tok.ID, false).
		Updates(map[string]any{
			"used":    true,
			"used_at": l.now(),
		})
	if r.Error != nil {
		return r.Error
	}

	if r.RowsAffected != 1 {
		return ErrTokenConsumed
	}

	return nil
}

func (l *Lifecycle) notify(ctx context.Context, template, to, path, raw string, ttl time.Duration) error {
	link := fmt.Sprintf("%s%s?token=%s", l.opts.BaseURL, path, url.QueryEscape(raw))

	return l.notifier.Send(ctx, template, to, map[string]any{
		"Link":      link,
		"ExpiresIn": humanDuration(ttl),
	})
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d.Round(time.Minute)/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}

	return fmt.Sprintf("%d %ss", n, unit)
}
