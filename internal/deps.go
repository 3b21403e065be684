// Package internal wires the services shared by the HTTP handlers
package internal

import (
	"bitwise74/todo-api/config"
	"bitwise74/todo-api/internal/service"
	"bitwise74/todo-api/pkg/security"
	"bitwise74/todo-api/pkg/validators"

	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Gateway  *service.Gateway
	Accounts *service.Lifecycle
	Profiles *service.Profiles
	Tasks    *service.Tasks
	Cleaner  *service.Cleaner
}

// NewDeps builds every service from the config and the infrastructure
// main (or a test) already set up
func NewDeps(cfg *config.Config, db *gorm.DB, h security.Hasher, b security.Blacklist, n service.Notifier, images service.ImageStore) *Deps {
	signer := security.NewSigner(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	return &Deps{
		DB:      db,
		Config:  cfg,
		Gateway: service.NewGateway(db, h, signer, b, cfg.JWT.UpdateLastLogin),
		Accounts: service.NewLifecycle(db, h, validators.DefaultPasswordPolicy(), n, service.LifecycleOptions{
			BaseURL:        cfg.Host.BaseURL(),
			ActivationTTL:  cfg.Tokens.ActivationTTL,
			ResetTTL:       cfg.Tokens.ResetTTL,
			CleanupAfter:   cfg.Tokens.CleanupAfter,
			UnverifiedTTL:  cfg.Accounts.UnverifiedTTL,
			ResendCooldown: cfg.Mail.ResendCooldown,
		}),
		Profiles: service.NewProfiles(db, images, cfg.Upload.MaxImageSize),
		Tasks:    service.NewTasks(db),
		Cleaner:  service.NewCleaner(db, images),
	}
}
