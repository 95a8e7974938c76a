package tracks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stagematch/backend/internal/profiles"
	"go.uber.org/zap"
)

// maxUploadBytes caps a single audio upload at 10 MiB.
const maxUploadBytes = 10 << 20

var (
	// ErrValidation indicates a rejected upload: wrong MIME type, oversized
	// file or a full track list.
	ErrValidation = errors.New("tracks: invalid upload")
	// ErrNotFound indicates the referenced track is not on the caller's profile.
	ErrNotFound = errors.New("tracks: track not found")
	// ErrStorage indicates the blob store call failed.
	ErrStorage = errors.New("tracks: storage unavailable")

	errMissingBlobStore = errors.New("tracks: blob store is required")
	errMissingProfiles  = errors.New("tracks: profiles service is required")
)

// BlobStore is the external object storage collaborator. Uploads and deletes
// are single attempts with no retry policy beyond the SDK's defaults.
type BlobStore interface {
	Upload(ctx context.Context, path, contentType string, reader io.Reader) error
	DownloadURL(path string) string
	Delete(ctx context.Context, path string) error
	PathFromURL(rawURL string) (string, bool)
}

// ServiceConfig describes the dependencies of the track lifecycle service.
type ServiceConfig struct {
	Blobs    BlobStore
	Profiles *profiles.Service
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service sequences blob uploads and deletions against the metadata store.
type Service struct {
	blobs    BlobStore
	profiles *profiles.Service
	clock    func() time.Time
	logger   *zap.Logger
}

// NewService constructs the track lifecycle service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Blobs == nil {
		return nil, errMissingBlobStore
	}
	if cfg.Profiles == nil {
		return nil, errMissingProfiles
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
		blobs:    cfg.Blobs,
		profiles: cfg.Profiles,
		clock:    clock,
		logger:   logger,
	}, nil
}

// Upload stores one audio file and appends it to the caller's track list.
// The blob is written first; a metadata failure after a successful upload
// leaves the blob orphaned, which is accepted.
func (s *Service) Upload(ctx context.Context, externalAuthID, trackName, fileName, contentType string, size int64, reader io.Reader) (profiles.Profile, error) {
	if !strings.HasPrefix(contentType, "audio/") {
		return profiles.Profile{}, fmt.Errorf("%w: only audio files are allowed", ErrValidation)
	}
	if size > maxUploadBytes {
		return profiles.Profile{}, fmt.Errorf("%w: files must be under 10MB", ErrValidation)
	}

	own, err := s.profiles.GetOwn(ctx, externalAuthID)
	if err != nil {
		return profiles.Profile{}, err
	}
	existing := own.Profile.AudioTracks
	if len(existing)+1 > profiles.MaxAudioTracks {
		return profiles.Profile{}, fmt.Errorf("%w: maximum %d audio tracks allowed", ErrValidation, profiles.MaxAudioTracks)
	}

	path := fmt.Sprintf("audio-tracks/%d-%s", s.clock().UnixMilli(), sanitizeFileName(fileName))
	if err := s.blobs.Upload(ctx, path, contentType, io.LimitReader(reader, maxUploadBytes)); err != nil {
		s.logger.Error("audio upload failed", zap.String("path", path), zap.Error(err))
		return profiles.Profile{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	name := strings.TrimSpace(trackName)
	if name == "" {
		name = fileName
	}
	grown := append(existing, profiles.AudioTrack{
		Name: name,
		URL:  s.blobs.DownloadURL(path),
	})

	profile, err := s.profiles.SetAudioTracks(ctx, externalAuthID, grown)
	if err != nil {
		// The uploaded blob is orphaned here; it is not cleaned up.
		s.logger.Warn("track metadata write failed after upload",
			zap.String("path", path), zap.Error(err))
		return profiles.Profile{}, err
	}
	return profile, nil
}

// Delete removes the track with the given URL from the caller's list. The
// blob deletion is best effort; a failure there is logged and swallowed so
// the metadata update can proceed.
func (s *Service) Delete(ctx context.Context, externalAuthID, trackURL string) (profiles.Profile, error) {
	own, err := s.profiles.GetOwn(ctx, externalAuthID)
	if err != nil {
		return profiles.Profile{}, err
	}

	reduced := make([]profiles.AudioTrack, 0, len(own.Profile.AudioTracks))
	removed := false
	for _, track := range own.Profile.AudioTracks {
		if !removed && sameTrackURL(track.URL, trackURL) {
			removed = true
			continue
		}
		reduced = append(reduced, track)
	}
	if !removed {
		return profiles.Profile{}, fmt.Errorf("%w: url %s", ErrNotFound, trackURL)
	}

	if path, ok := s.blobs.PathFromURL(trackURL); ok {
		if err := s.blobs.Delete(ctx, path); err != nil {
			s.logger.Warn("best-effort blob delete failed",
				zap.String("path", path), zap.Error(err))
		}
	}

	return s.profiles.SetAudioTracks(ctx, externalAuthID, reduced)
}

func sameTrackURL(a, b string) bool {
	return trimMediaFlag(a) == trimMediaFlag(b)
}

func trimMediaFlag(rawURL string) string {
	trimmed := strings.ReplaceAll(rawURL, "&alt=media", "")
	return strings.ReplaceAll(trimmed, "?alt=media", "")
}

func sanitizeFileName(fileName string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.TrimSpace(fileName))
	if cleaned == "" {
		return "track"
	}
	return cleaned
}
