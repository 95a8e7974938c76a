package profiles

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

const (
	// DefaultPage is used when a listing request carries no page parameter.
	DefaultPage = 1
	// DefaultLimit is used when a listing request carries no limit parameter.
	DefaultLimit = 9
)

// BandPage is one page of a band listing.
type BandPage struct {
	Items       []Band `json:"items"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
}

// GigProviderPage is one page of a gig provider listing.
type GigProviderPage struct {
	Items       []GigProvider `json:"items"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
}

// ListBands returns bands ordered most recent first, optionally filtered by a
// case-insensitive substring match over name, genre, location and description.
// A page beyond range yields empty items with a valid page count.
func (s *Service) ListBands(ctx context.Context, query string, page, limit int) (BandPage, error) {
	filtered := func() *gorm.DB {
		scope := s.db.WithContext(ctx).Model(&Band{})
		if pattern, ok := searchPattern(query); ok {
			scope = scope.Where(
				"LOWER(name) LIKE ? OR LOWER(genre) LIKE ? OR LOWER(location) LIKE ? OR LOWER(description) LIKE ?",
				pattern, pattern, pattern, pattern,
			)
		}
		return scope
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return BandPage{}, err
	}

	items := make([]Band, 0)
	if err := filtered().
		Order("created_at DESC").
		Offset(pageOffset(page, limit)).
		Limit(limit).
		Find(&items).Error; err != nil {
		return BandPage{}, err
	}

	return BandPage{
		Items:       items,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
	}, nil
}

// ListGigProviders mirrors ListBands with the services column replacing genre.
func (s *Service) ListGigProviders(ctx context.Context, query string, page, limit int) (GigProviderPage, error) {
	filtered := func() *gorm.DB {
		scope := s.db.WithContext(ctx).Model(&GigProvider{})
		if pattern, ok := searchPattern(query); ok {
			scope = scope.Where(
				"LOWER(name) LIKE ? OR LOWER(services) LIKE ? OR LOWER(location) LIKE ? OR LOWER(description) LIKE ?",
				pattern, pattern, pattern, pattern,
			)
		}
		return scope
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return GigProviderPage{}, err
	}

	items := make([]GigProvider, 0)
	if err := filtered().
		Order("created_at DESC").
		Offset(pageOffset(page, limit)).
		Limit(limit).
		Find(&items).Error; err != nil {
		return GigProviderPage{}, err
	}

	return GigProviderPage{
		Items:       items,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
	}, nil
}

func searchPattern(query string) (string, bool) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", false
	}
	return "%" + strings.ToLower(trimmed) + "%", true
}

func pageOffset(page, limit int) int {
	return (page - 1) * limit
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
