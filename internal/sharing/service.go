package sharing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stagematch/backend/internal/profiles"
	"github.com/stagematch/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrValidation indicates a sharing rule violation, e.g. same-type sharing.
	ErrValidation = errors.New("sharing: invalid share")
	// ErrNotFound indicates the edge does not exist or does not belong to the
	// caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("sharing: shared profile not found")

	errMissingDatabase   = errors.New("sharing: database handle is required")
	errMissingUsers      = errors.New("sharing: users service is required")
	errMissingProfiles   = errors.New("sharing: profiles service is required")
	errMissingIDProvider = errors.New("sharing: id provider is required")
)

// IDProvider issues identifiers for newly created edges.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the shared-profile service.
type ServiceConfig struct {
	Database   *gorm.DB
	Users      *users.Service
	Profiles   *profiles.Service
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service manages the cross-type recommendation edges between profiles.
type Service struct {
	db         *gorm.DB
	users      *users.Service
	profiles   *profiles.Service
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the shared-profile service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Users == nil {
		return nil, errMissingUsers
	}
	if cfg.Profiles == nil {
		return nil, errMissingProfiles
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         cfg.Database,
		users:      cfg.Users,
		profiles:   cfg.Profiles,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Share records that the caller shared their own profile with the target
// user. Sharing is only permitted across profile types; a band shares to gig
// providers and vice versa.
func (s *Service) Share(ctx context.Context, externalAuthID, targetUserID, shareMessage string) (SharedProfile, error) {
	caller, err := s.users.Resolve(ctx, externalAuthID)
	if err != nil {
		return SharedProfile{}, err
	}
	target, err := s.users.Lookup(ctx, targetUserID)
	if err != nil {
		return SharedProfile{}, err
	}

	if caller.ProfileType == target.ProfileType {
		return SharedProfile{}, fmt.Errorf("%w: cannot share to the same profile type", ErrValidation)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return SharedProfile{}, err
	}
	edge := SharedProfile{
		ID:           id,
		UserID:       caller.ID,
		SharedBy:     target.ID,
		ProfileType:  caller.ProfileType,
		ShareMessage: shareMessage,
		ShareDate:    s.clock(),
	}
	if err := s.db.WithContext(ctx).Create(&edge).Error; err != nil {
		return SharedProfile{}, err
	}

	s.logger.Info("profile shared",
		zap.String("edge_id", edge.ID),
		zap.String("user_id", caller.ID),
		zap.String("shared_by", target.ID))
	return edge, nil
}

// Item is one shared-profile edge joined with the sharer's profile data.
type Item struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	SharedBy     string            `json:"sharedBy"`
	ProfileType  users.ProfileType `json:"profileType"`
	ShareMessage string            `json:"shareMessage"`
	ShareDate    time.Time         `json:"shareDate"`
	User         profiles.View     `json:"user"`
}

// Page is one page of shared-profile edges received by the caller.
type Page struct {
	Profiles    []Item `json:"profiles"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
}

// List returns the edges shared with the caller whose sharer's profile type
// is the opposite of the caller's, newest share first.
func (s *Service) List(ctx context.Context, externalAuthID string, page, limit int) (Page, error) {
	caller, err := s.users.Resolve(ctx, externalAuthID)
	if err != nil {
		return Page{}, err
	}

	filtered := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&SharedProfile{}).
			Joins("JOIN users ON users.id = shared_profiles.user_id").
			Where("shared_profiles.shared_by = ?", caller.ID).
			Where("shared_profiles.user_id <> ?", caller.ID).
			Where("users.profile_type = ?", caller.ProfileType.Opposite())
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return Page{}, err
	}

	var edges []SharedProfile
	if err := filtered().
		Order("shared_profiles.share_date DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&edges).Error; err != nil {
		return Page{}, err
	}

	items := make([]Item, 0, len(edges))
	for _, edge := range edges {
		sharer, err := s.profiles.GetByID(ctx, edge.UserID)
		if err != nil {
			return Page{}, err
		}
		items = append(items, Item{
			ID:           edge.ID,
			UserID:       edge.UserID,
			SharedBy:     edge.SharedBy,
			ProfileType:  edge.ProfileType,
			ShareMessage: edge.ShareMessage,
			ShareDate:    edge.ShareDate,
			User:         sharer,
		})
	}

	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page{
		Profiles:    items,
		TotalPages:  pages,
		CurrentPage: page,
	}, nil
}

// Delete removes an edge, but only when the caller is its recipient. A
// missing edge and a foreign edge both fail with ErrNotFound.
func (s *Service) Delete(ctx context.Context, externalAuthID, edgeID string) error {
	caller, err := s.users.Resolve(ctx, externalAuthID)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND shared_by = ?", edgeID, caller.ID).
		Delete(&SharedProfile{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, edgeID)
	}

	s.logger.Info("shared profile deleted",
		zap.String("edge_id", edgeID),
		zap.String("shared_by", caller.ID))
	return nil
}
