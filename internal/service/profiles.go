package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"bitwise74/todo-api/internal/model"

	"github.com/gabriel-vasile/mimetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNameLength = 150

var (
	ErrImageTooLarge = errors.New("image is too large")
	ErrImageType     = errors.New("unsupported image type, use png, jpeg, webp or gif")
	ErrNameTooLong   = fmt.Errorf("ensure this field has no more than %d characters", maxNameLength)

	allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}
)

// ImageStore keeps profile images. Keys are relative, URL turns them into
// something a browser can load.
type ImageStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, keys ...string) error
	URL(key string) string
}

type Profiles struct {
	db           *gorm.DB
	images       ImageStore
	maxImageSize int64
}

func NewProfiles(db *gorm.DB, images ImageStore, maxImageSize int64) *Profiles {
	return &Profiles{db: db, images: images, maxImageSize: maxImageSize}
}

// ProfileUpdate holds the editable fields, nil ones are left alone
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Description *string
}

func (p *Profiles) Get(ctx context.Context, accountID string) (*model.Profile, error) {
	var prof model.Profile
	if err := p.db.WithContext(ctx).Where("account_id = ?", accountID).First(&prof).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Profiles are created with the account so this shouldn't happen
			zap.L().Error("Account has no profile", zap.String("userID", accountID))
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to load profile, %w", err)
	}

	return &prof, nil
}

func (p *Profiles) Update(ctx context.Context, accountID string, u ProfileUpdate) (*model.Profile, error) {
	return p.Save(ctx, accountID, u, nil)
}

// SetImage stores a new profile image and drops the previous one
func (p *Profiles) SetImage(ctx context.Context, accountID string, r io.Reader) (*model.Profile, error) {
	return p.Save(ctx, accountID, ProfileUpdate{}, r)
}

// Save applies u and, when image is not nil, replaces the profile image.
// Everything is validated before anything is written so a rejected image
// leaves the text fields untouched too.
func (p *Profiles) Save(ctx context.Context, accountID string, u ProfileUpdate, image io.Reader) (*model.Profile, error) {
	prof, err := p.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	updates, err := profileChanges(u)
	if err != nil {
		return nil, err
	}

	var key string
	if image != nil {
		data, mime, err := p.readImage(image)
		if err != nil {
			return nil, err
		}

		name, err := gonanoid.Generate(idCharset, 12)
		if err != nil {
			return nil, fmt.Errorf("failed to generate image key, %w", err)
		}

		key = fmt.Sprintf("profiles/%s/%s%s", accountID, name, mime.Extension())
		if err := p.images.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mime.String()); err != nil {
			return nil, fmt.Errorf("failed to store image, %w", err)
		}

		updates["image_key"] = key
	}

	if len(updates) == 0 {
		return prof, nil
	}

	old := prof.ImageKey
	if err := p.db.WithContext(ctx).Model(prof).Updates(updates).Error; err != nil {
		if key != "" {
			if derr := p.images.Delete(ctx, key); derr != nil {
				zap.L().Warn("Failed to remove orphaned image", zap.String("key", key), zap.Error(derr))
			}
		}

		return nil, fmt.Errorf("failed to update profile, %w", err)
	}

	if key != "" && old != "" {
		if err := p.images.Delete(ctx, old); err != nil {
			zap.L().Warn("Failed to remove previous image", zap.String("key", old), zap.Error(err))
		}
	}

	return p.Get(ctx, accountID)
}

func profileChanges(u ProfileUpdate) (map[string]any, error) {
	updates := map[string]any{}
	fields := map[string]*string{
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"description": u.Description,
	}

	for col, v := range fields {
		if v == nil {
			continue
		}

		if col != "description" && utf8.RuneCountInString(*v) > maxNameLength {
			return nil, invalidField(col, ErrNameTooLong)
		}

		updates[col] = *v
	}

	return updates, nil
}

func (p *Profiles) readImage(r io.Reader) ([]byte, *mimetype.MIME, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxImageSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image, %w", err)
	}

	if int64(len(data)) > p.maxImageSize {
		return nil, nil, invalidField("image", ErrImageTooLarge)
	}

	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), allowedImageTypes...) {
		return nil, nil, invalidField("image", ErrImageType)
	}

	return data, mime, nil
}

// ImageURL is empty for profiles without an image
func (p *Profiles) ImageURL(prof *model.Profile) string {
	if prof.ImageKey == "" {
		return ""
	}

	return p.images.URL(prof.ImageKey)
}
