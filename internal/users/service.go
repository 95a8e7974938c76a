package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the referenced user row does not exist.
	ErrNotFound = errors.New("users: user not found")
	// ErrInvalidExternalID indicates the external identity id is empty.
	ErrInvalidExternalID = errors.New("users: invalid external auth id")

	errMissingDatabase   = errors.New("users: database connection required")
	errMissingIDProvider = errors.New("users: id provider required")
)

// IDProvider issues identifiers for newly created rows.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required for user identity resolution.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
}

// Service resolves external authentication subjects to marketplace user rows.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider IDProvider
}

// NewService constructs the identity resolution service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
	}, nil
}

// Resolve returns the user row mapped to the given external authentication id.
// A missing row is ErrNotFound; callers never fall back to an anonymous identity.
func (s *Service) Resolve(ctx context.Context, externalAuthID string) (User, error) {
	externalAuthID = strings.TrimSpace(externalAuthID)
	if externalAuthID == "" {
		return User{}, ErrInvalidExternalID
	}

	var user User
	err := s.db.WithContext(ctx).
		Where("external_auth_id = ?", externalAuthID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, fmt.Errorf("%w: external auth id %s", ErrNotFound, externalAuthID)
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// Lookup returns the user row whose internal id or external authentication id matches.
func (s *Service) Lookup(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrInvalidExternalID
	}

	var user User
	err := s.db.WithContext(ctx).
		Where("id = ? OR external_auth_id = ?", id, id).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// UpsertParams carries the user-level fields written during a profile upsert.
type UpsertParams struct {
	ExternalAuthID string
	Name           string
	ImageURL       string
	ProfileType    ProfileType
}

// Upsert creates the user row on first authenticated profile write and
// refreshes name, image and profile type on subsequent writes.
func (s *Service) Upsert(ctx context.Context, params UpsertParams) (User, error) {
	externalAuthID := strings.TrimSpace(params.ExternalAuthID)
	if externalAuthID == "" {
		return User{}, ErrInvalidExternalID
	}

	var user User
	err := s.db.WithContext(ctx).
		Where("external_auth_id = ?", externalAuthID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		id, idErr := s.idProvider.NewID()
		if idErr != nil {
			return User{}, idErr
		}
		user = User{
			ID:             id,
			ExternalAuthID: externalAuthID,
			Name:           params.Name,
			ImageURL:       params.ImageURL,
			ProfileType:    params.ProfileType,
			CreatedAt:      s.now(),
		}
		if createErr := s.db.WithContext(ctx).Create(&user).Error; createErr != nil {
			return User{}, createErr
		}
		return user, nil
	}
	if err != nil {
		return User{}, err
	}

	updates := map[string]interface{}{
		"name":         params.Name,
		"image_url":    params.ImageURL,
		"profile_type": params.ProfileType,
		"updated_at":   s.now(),
	}
	if err := s.db.WithContext(ctx).Model(&User{}).
		Where("external_auth_id = ?", externalAuthID).
		Updates(updates).Error; err != nil {
		return User{}, err
	}

	user.Name = params.Name
	user.ImageURL = params.ImageURL
	user.ProfileType = params.ProfileType
	return user, nil
}
