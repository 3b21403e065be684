package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/todo-api/internal/model"
	"bitwise74/todo-api/pkg/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cleaner removes tokens past their cleanup date and accounts that never
// got verified
type Cleaner struct {
	db     *gorm.DB
	images ImageStore
	now    func() time.Time
}

func NewCleaner(db *gorm.DB, images ImageStore) *Cleaner {
	return &Cleaner{db: db, images: images, now: time.Now}
}

// Tokens deletes verification tokens whose cleanup date has passed
func (c *Cleaner) Tokens(ctx context.Context) (int64, error) {
	r := c.db.WithContext(ctx).
		Where("cleanup_at IS NOT NULL AND cleanup_at < ?", c.now()).
		Delete(&model.VerificationToken{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to delete tokens, %w", r.Error)
	}

	metrics.CleanupRemoved.WithLabelValues("token").Add(float64(r.RowsAffected))
	return r.RowsAffected, nil
}

var errAccountsChanged = errors.New("accounts changed while being removed")

// Accounts deletes unverified accounts past their expiry together with
// everything they own
func (c *Cleaner) Accounts(ctx context.Context) (int64, error) {
	now := c.now()
	stale := func(tx *gorm.DB) *gorm.DB {
		return tx.Where("is_verified = ? AND expires_at IS NOT NULL AND expires_at < ?", false, now)
	}

	var ids, keys []string
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row locks keep activations out until the rows are gone. SQLite has
		// none, its write lock does the same.
		if err := tx.Model(&model.Account{}).
			Scopes(stale).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to query accounts to clean, %w", err)
		}

		if len(ids) == 0 {
			return nil
		}

		var err error
		keys, err = deleteOwned(tx, ids, stale)
		return err
	})
	if errors.Is(err, errAccountsChanged) {
		zap.L().Warn("Accounts got verified during cleanup, retrying next run", zap.Strings("ids", ids))
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	c.dropImages(ctx, keys)

	metrics.CleanupRemoved.WithLabelValues("account").Add(float64(len(ids)))
	return int64(len(ids)), nil
}

// DeleteAccounts removes the accounts and all rows hanging off them. Stored
// images are removed after the rows are gone, failures there are only logged.
func (c *Cleaner) DeleteAccounts(ctx context.Context, ids ...string) error {
	var keys []string
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		keys, err = deleteOwned(tx, ids, nil)
		return err
	})
	if err != nil {
		return err
	}

	c.dropImages(ctx, keys)
	return nil
}

// deleteOwned deletes the accounts and their rows inside tx and returns the
// image keys their profiles held. When guard is set the accounts are only
// deleted while it still matches every one of them, otherwise tx is rolled
// back with errAccountsChanged.
func deleteOwned(tx *gorm.DB, ids []string, guard func(*gorm.DB) *gorm.DB) ([]string, error) {
	var keys []string
	if err := tx.Model(&model.Profile{}).
		Where("account_id IN ? AND image_key <> ''", ids).
		Pluck("image_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to query profile images, %w", err)
	}

	profiles := tx.Model(&model.Profile{}).Select("id").Where("account_id IN ?", ids)

	steps := []struct {
		model any
		query string
		arg   any
	}{
		{&model.Task{}, "profile_id IN (?)", profiles},
		{&model.Profile{}, "account_id IN ?", ids},
		{&model.VerificationToken{}, "account_id IN ?", ids},
		{&model.ResendRequest{}, "account_id IN ?", ids},
	}

	for _, s := range steps {
		if err := tx.Where(s.query, s.arg).Delete(s.model).Error; err != nil {
			return nil, fmt.Errorf("failed to delete %T rows, %w", s.model, err)
		}
	}

	accounts := tx.Where("id IN ?", ids)
	if guard != nil {
		accounts = accounts.Scopes(guard)
	}

	r := accounts.Delete(&model.Account{})
	if r.Error != nil {
		return nil, fmt.Errorf("failed to delete accounts, %w", r.Error)
	}

	if guard != nil && r.RowsAffected != int64(len(ids)) {
		return nil, errAccountsChanged
	}

	return keys, nil
}

func (c *Cleaner) dropImages(ctx context.Context, keys []string) {
	if len(keys) == 0 || c.images == nil {
		return
	}

	if err := c.images.Delete(ctx, keys...); err != nil {
		zap.L().Error("Failed to delete profile images", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Schedule registers both jobs on cr. A zero interval disables a job.
func (c *Cleaner) Schedule(cr *cron.Cron, tokensEvery, accountsEvery time.Duration) error {
	jobs := []struct {
		name  string
		every time.Duration
		run   func(context.Context) (int64, error)
	}{
		{"token", tokensEvery, c.Tokens},
		{"account", accountsEvery, c.Accounts},
	}

	for _, j := range jobs {
		if j.every <= 0 {
			continue
		}

		_, err := cr.AddFunc(fmt.Sprintf("@every %s", j.every), func() {
			n, err := j.run(context.Background())
			if err != nil {
				zap.L().Error("Cleanup failed", zap.String("job", j.name), zap.Error(err))
				return
			}

			zap.L().Debug("Cleanup finished", zap.String("job", j.name), zap.Int64("removed", n))
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s cleanup, %w", j.name, err)
		}

		zap.L().Debug("Cleanup attached", zap.String("job", j.name), zap.Duration("tick_every", j.every))
	}

	return nil
}
