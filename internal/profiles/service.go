package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stagematch/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrValidation indicates malformed or missing required input.
	ErrValidation = errors.New("profiles: invalid input")
	// ErrNotFound indicates the referenced user or profile row is absent.
	ErrNotFound = errors.New("profiles: profile not found")

	errMissingDatabase   = errors.New("profiles: database handle is required")
	errMissingUsers      = errors.New("profiles: users service is required")
	errMissingIDProvider = errors.New("profiles: id provider is required")

	noOpLogger = zap.NewNop()
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// IDProvider issues identifiers for newly created profile rows.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the profile service.
type ServiceConfig struct {
	Database   *gorm.DB
	Users      *users.Service
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service implements profile reads, upserts and audio track replacement.
type Service struct {
	db         *gorm.DB
	users      *users.Service
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the profile service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Users == nil {
		return nil, errMissingUsers
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
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		users:      cfg.Users,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Input carries every field accepted by a profile upsert. Fields that do not
// apply to the chosen profile type are ignored.
type Input struct {
	Name         string
	ImageURL     string
	ProfileType  users.ProfileType
	Location     string
	Latitude     *float64
	Longitude    *float64
	Description  string
	Website      string
	Genre        string
	Services     string
	VideoURL     string
	Email        string
	PhoneNumber  string
	HeaderImage  string
	FacebookURL  string
	InstagramURL string
	BandMembers  []string
	Photos       []string
}

// Profile is the denormalized profile representation returned to callers.
type Profile struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	ExternalAuthID string       `json:"externalAuthId,omitempty"`
	Name           string       `json:"name"`
	ImageURL       string       `json:"imageUrl"`
	HeaderImage    string       `json:"headerImage"`
	Location       string       `json:"location"`
	Latitude       *float64     `json:"latitude"`
	Longitude      *float64     `json:"longitude"`
	Description    string       `json:"description"`
	Website        string       `json:"website"`
	Email          string       `json:"email"`
	PhoneNumber    string       `json:"phoneNumber"`
	FacebookURL    string       `json:"facebookUrl"`
	InstagramURL   string       `json:"instagramUrl"`
	Genre          string       `json:"genre,omitempty"`
	VideoURL       string       `json:"videoUrl,omitempty"`
	BandMembers    []string     `json:"bandMembers,omitempty"`
	Services       string       `json:"services,omitempty"`
	Photos         []string     `json:"photos"`
	AudioTracks    []AudioTrack `json:"audioTracks"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// View is the profile envelope returned by the read operations.
type View struct {
	Name        string            `json:"name"`
	ImageURL    string            `json:"imageUrl"`
	ProfileType users.ProfileType `json:"profileType"`
	Profile     Profile           `json:"profile"`
}

// OwnView extends View with the caller's location for convenience.
type OwnView struct {
	View
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CreateOrUpdate upserts the user row keyed on the external identity, then
// upserts the type-appropriate profile row keyed on the user id. Re-invoking
// with identical input yields identical stored state.
func (s *Service) CreateOrUpdate(ctx context.Context, externalAuthID string, input Input) (Profile, error) {
	if err := validateInput(input); err != nil {
		return Profile{}, err
	}

	user, err := s.users.Upsert(ctx, users.UpsertParams{
		ExternalAuthID: externalAuthID,
		Name:           input.Name,
		ImageURL:       input.ImageURL,
		ProfileType:    input.ProfileType,
	})
	if err != nil {
		return Profile{}, err
	}

	switch input.ProfileType {
	case users.ProfileTypeBand:
		band, err := s.upsertBand(ctx, user.ID, input)
		if err != nil {
			return Profile{}, err
		}
		return bandProfile(user, band), nil
	default:
		provider, err := s.upsertGigProvider(ctx, user.ID, input)
		if err != nil {
			return Profile{}, err
		}
		return gigProviderProfile(user, provider), nil
	}
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.Name) == "" ||
		strings.TrimSpace(input.ImageURL) == "" ||
		strings.TrimSpace(input.Location) == "" ||
		input.ProfileType == "" {
		return fmt.Errorf("%w: missing required fields", ErrValidation)
	}
	if !input.ProfileType.Valid() {
		return fmt.Errorf("%w: unknown profile type %q", ErrValidation, input.ProfileType)
	}
	return nil
}

func (s *Service) upsertBand(ctx context.Context, userID string, input Input) (Band, error) {
	var band Band
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&band).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		id, idErr := s.idProvider.NewID()
		if idErr != nil {
			return Band{}, idErr
		}
		band = Band{
			ID:           id,
			UserID:       userID,
			Name:         input.Name,
			ImageURL:     input.ImageURL,
			HeaderImage:  input.HeaderImage,
			Location:     input.Location,
			Latitude:     input.Latitude,
			Longitude:    input.Longitude,
			Description:  input.Description,
			Website:      input.Website,
			Email:        input.Email,
			PhoneNumber:  input.PhoneNumber,
			FacebookURL:  input.FacebookURL,
			InstagramURL: input.InstagramURL,
			Genre:        input.Genre,
			VideoURL:     input.VideoURL,
			BandMembers:  StringList(input.BandMembers),
			Photos:       StringList(input.Photos),
			AudioTracks:  TrackList{},
			CreatedAt:    s.clock(),
		}
		if createErr := s.db.WithContext(ctx).Create(&band).Error; createErr != nil {
			return Band{}, createErr
		}
		return band, nil
	}
	if err != nil {
		return Band{}, err
	}

	// Whole-profile update; the audio track column is owned by SetAudioTracks
	// and must survive profile edits untouched.
	updates := map[string]interface{}{
		"name":          input.Name,
		"image_url":     input.ImageURL,
		"header_image":  input.HeaderImage,
		"location":      input.Location,
		"latitude":      input.Latitude,
		"longitude":     input.Longitude,
		"description":   input.Description,
		"website":       input.Website,
		"email":         input.Email,
		"phone_number":  input.PhoneNumber,
		"facebook_url":  input.FacebookURL,
		"instagram_url": input.InstagramURL,
		"genre":         input.Genre,
		"video_url":     input.VideoURL,
		"band_members":  StringList(input.BandMembers),
		"photos":        StringList(input.Photos),
		"updated_at":    s.clock(),
	}
	if err := s.db.WithContext(ctx).Model(&Band{}).
		Where("user_id = ?", userID).
		Updates(updates).Error; err != nil {
		return Band{}, err
	}
	return s.loadBand(ctx, userID)
}

func (s *Service) upsertGigProvider(ctx context.Context, userID string, input Input) (GigProvider, error) {
	var provider GigProvider
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		id, idErr := s.idProvider.NewID()
		if idErr != nil {
			return GigProvider{}, idErr
		}
		provider = GigProvider{
			ID:           id,
			UserID:       userID,
			Name:         input.Name,
			ImageURL:     input.ImageURL,
			HeaderImage:  input.HeaderImage,
			Location:     input.Location,
			Latitude:     input.Latitude,
			Longitude:    input.Longitude,
			Description:  input.Description,
			Website:      input.Website,
			Email:        input.Email,
			PhoneNumber:  input.PhoneNumber,
			FacebookURL:  input.FacebookURL,
			InstagramURL: input.InstagramURL,
			Services:     input.Services,
			Photos:       StringList(input.Photos),
			AudioTracks:  TrackList{},
			CreatedAt:    s.clock(),
		}
		if createErr := s.db.WithContext(ctx).Create(&provider).Error; createErr != nil {
			return GigProvider{}, createErr
		}
		return provider, nil
	}
	if err != nil {
		return GigProvider{}, err
	}

	updates := map[string]interface{}{
		"name":          input.Name,
		"image_url":     input.ImageURL,
		"header_image":  input.HeaderImage,
		"location":      input.Location,
		"latitude":      input.Latitude,
		"longitude":     input.Longitude,
		"description":   input.Description,
		"website":       input.Website,
		"email":         input.Email,
		"phone_number":  input.PhoneNumber,
		"facebook_url":  input.FacebookURL,
		"instagram_url": input.InstagramURL,
		"services":      input.Services,
		"photos":        StringList(input.Photos),
		"updated_at":    s.clock(),
	}
	if err := s.db.WithContext(ctx).Model(&GigProvider{}).
		Where("user_id = ?", userID).
		Updates(updates).Error; err != nil {
		return GigProvider{}, err
	}
	return s.loadGigProvider(ctx, userID)
}

// GetByID resolves a user by internal or external id and returns the
// denormalized profile view with normalized audio track URLs.
func (s *Service) GetByID(ctx context.Context, id string) (View, error) {
	user, err := s.users.Lookup(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.composeView(ctx, user)
}

// GetOwn returns the authenticated caller's profile view plus top-level location.
func (s *Service) GetOwn(ctx context.Context, externalAuthID string) (OwnView, error) {
	user, err := s.users.Resolve(ctx, externalAuthID)
	if err != nil {
		return OwnView{}, err
	}
	view, err := s.composeView(ctx, user)
	if err != nil {
		return OwnView{}, err
	}
	return OwnView{
		View:      view,
		Location:  view.Profile.Location,
		Latitude:  view.Profile.Latitude,
		Longitude: view.Profile.Longitude,
	}, nil
}

func (s *Service) composeView(ctx context.Context, user users.User) (View, error) {
	view := View{
		Name:     user.Name,
		ImageURL: user.ImageURL,
	}

	band, err := s.findBand(ctx, user.ID)
	if err != nil {
		return View{}, err
	}
	if band != nil {
		view.ProfileType = users.ProfileTypeBand
		view.Profile = normalizeTracks(bandProfile(user, *band))
		return view, nil
	}

	provider, err := s.findGigProvider(ctx, user.ID)
	if err != nil {
		return View{}, err
	}
	if provider != nil {
		view.ProfileType = users.ProfileTypeGigProvider
		view.Profile = normalizeTracks(gigProviderProfile(user, *provider))
		return view, nil
	}

	// User exists without a typed profile row yet; the view carries an
	// empty profile with normalized (empty) track list.
	view.Profile = normalizeTracks(Profile{
		UserID:         user.ID,
		ExternalAuthID: user.ExternalAuthID,
	})
	return view, nil
}

// SetAudioTracks replaces the stored track sequence in a single row update.
// The list may be empty; a malformed entry fails the whole call with no
// partial write. The four-track cap is enforced here, not only at the edges.
func (s *Service) SetAudioTracks(ctx context.Context, externalAuthID string, tracks []AudioTrack) (Profile, error) {
	user, err := s.users.Resolve(ctx, externalAuthID)
	if err != nil {
		return Profile{}, err
	}

	if len(tracks) > MaxAudioTracks {
		return Profile{}, fmt.Errorf("%w: at most %d audio tracks allowed", ErrValidation, MaxAudioTracks)
	}
	for index, track := range tracks {
		if err := validate.Struct(track); err != nil {
			return Profile{}, fmt.Errorf("%w: audio track %d: %v", ErrValidation, index, err)
		}
	}

	stored := TrackList(tracks)
	band, err := s.findBand(ctx, user.ID)
	if err != nil {
		return Profile{}, err
	}
	if band != nil {
		if err := s.db.WithContext(ctx).Model(&Band{}).
			Where("user_id = ?", user.ID).
			Update("audio_tracks", stored).Error; err != nil {
			return Profile{}, err
		}
		band.AudioTracks = stored
		return bandProfile(user, *band), nil
	}

	provider, err := s.findGigProvider(ctx, user.ID)
	if err != nil {
		return Profile{}, err
	}
	if provider != nil {
		if err := s.db.WithContext(ctx).Model(&GigProvider{}).
			Where("user_id = ?", user.ID).
			Update("audio_tracks", stored).Error; err != nil {
			return Profile{}, err
		}
		provider.AudioTracks = stored
		return gigProviderProfile(user, *provider), nil
	}

	return Profile{}, fmt.Errorf("%w: user %s", ErrNotFound, user.ID)
}

func (s *Service) findBand(ctx context.Context, userID string) (*Band, error) {
	var band Band
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&band).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &band, nil
}

func (s *Service) findGigProvider(ctx context.Context, userID string) (*GigProvider, error) {
	var provider GigProvider
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

func (s *Service) loadBand(ctx context.Context, userID string) (Band, error) {
	band, err := s.findBand(ctx, userID)
	if err != nil {
		return Band{}, err
	}
	if band == nil {
		return Band{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return *band, nil
}

func (s *Service) loadGigProvider(ctx context.Context, userID string) (GigProvider, error) {
	provider, err := s.findGigProvider(ctx, userID)
	if err != nil {
		return GigProvider{}, err
	}
	if provider == nil {
		return GigProvider{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return *provider, nil
}

func bandProfile(user users.User, band Band) Profile {
	return Profile{
		ID:             band.ID,
		UserID:         band.UserID,
		ExternalAuthID: user.ExternalAuthID,
		Name:           band.Name,
		ImageURL:       band.ImageURL,
		HeaderImage:    band.HeaderImage,
		Location:       band.Location,
		Latitude:       band.Latitude,
		Longitude:      band.Longitude,
		Description:    band.Description,
		Website:        band.Website,
		Email:          band.Email,
		PhoneNumber:    band.PhoneNumber,
		FacebookURL:    band.FacebookURL,
		InstagramURL:   band.InstagramURL,
		Genre:          band.Genre,
		VideoURL:       band.VideoURL,
		BandMembers:    band.BandMembers,
		Photos:         band.Photos,
		AudioTracks:    band.AudioTracks,
		CreatedAt:      band.CreatedAt,
	}
}

func gigProviderProfile(user users.User, provider GigProvider) Profile {
	return Profile{
		ID:             provider.ID,
		UserID:         provider.UserID,
		ExternalAuthID: user.ExternalAuthID,
		Name:           provider.Name,
		ImageURL:       provider.ImageURL,
		HeaderImage:    provider.HeaderImage,
		Location:       provider.Location,
		Latitude:       provider.Latitude,
		Longitude:      provider.Longitude,
		Description:    provider.Description,
		Website:        provider.Website,
		Email:          provider.Email,
		PhoneNumber:    provider.PhoneNumber,
		FacebookURL:    provider.FacebookURL,
		InstagramURL:   provider.InstagramURL,
		Services:       provider.Services,
		Photos:         provider.Photos,
		AudioTracks:    provider.AudioTracks,
		CreatedAt:      provider.CreatedAt,
	}
}

func normalizeTracks(profile Profile) Profile {
	normalized := make([]AudioTrack, 0, len(profile.AudioTracks))
	for _, track := range profile.AudioTracks {
		normalized = append(normalized, track.WithMediaFlag())
	}
	profile.AudioTracks = normalized
	if profile.Photos == nil {
		profile.Photos = []string{}
	}
	return profile
}
