package sharing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stagematch/backend/internal/profiles"
	"github.com/stagematch/backend/internal/users"
	"gorm.io/gorm"
)

type testEnv struct {
	sharing  *Service
	profiles *profiles.Service
	db       *gorm.DB
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &profiles.Band{}, &profiles.GigProvider{}, &SharedProfile{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: users.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}
	profilesService, err := profiles.NewService(profiles.ServiceConfig{
		Database:   db,
		Users:      usersService,
		IDProvider: users.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to create profiles service: %v", err)
	}
	sharingService, err := NewService(ServiceConfig{
		Database:   db,
		Users:      usersService,
		Profiles:   profilesService,
		Clock:      func() time.Time { return time.Unix(1700000000, 0).UTC() },
		IDProvider: users.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to create sharing service: %v", err)
	}
	return testEnv{sharing: sharingService, profiles: profilesService, db: db}
}

func (e testEnv) createProfile(t *testing.T, externalID, name string, kind users.ProfileType) profiles.Profile {
	t.Helper()
	input := profiles.Input{
		Name:        name,
		ImageURL:    "https://img.example/" + externalID + ".png",
		ProfileType: kind,
		Location:    "Dresden",
	}
	profile, err := e.profiles.CreateOrUpdate(context.Background(), externalID, input)
	if err != nil {
		t.Fatalf("creating profile %s failed: %v", externalID, err)
	}
	return profile
}

func TestShareRejectsSameProfileType(t *testing.T) {
	env := newTestEnv(t)
	env.createProfile(t, "ext-band-1", "First Band", users.ProfileTypeBand)
	other := env.createProfile(t, "ext-band-2", "Second Band", users.ProfileTypeBand)

	_, err := env.sharing.Share(context.Background(), "ext-band-1", other.UserID, "check this out")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for same-type share, got %v", err)
	}
}

func TestShareRejectsUnknownTarget(t *testing.T) {
	env := newTestEnv(t)
	env.createProfile(t, "ext-band-1", "First Band", users.ProfileTypeBand)

	_, err := env.sharing.Share(context.Background(), "ext-band-1", "no-such-user", "hello")
	if !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestShareCreatesEdgeVisibleToRecipientOnly(t *testing.T) {
	env := newTestEnv(t)
	band := env.createProfile(t, "ext-band", "Touring Band", users.ProfileTypeBand)
	venue := env.createProfile(t, "ext-venue", "Riverside Hall", users.ProfileTypeGigProvider)
	_ = band

	edge, err := env.sharing.Share(context.Background(), "ext-band", venue.UserID, "we would love to play here")
	if err != nil {
		t.Fatalf("share failed: %v", err)
	}
	if edge.ProfileType != users.ProfileTypeBand {
		t.Fatalf("edge must carry the sharer's profile type, got %q", edge.ProfileType)
	}

	received, err := env.sharing.List(context.Background(), "ext-venue", 1, 9)
	if err != nil {
		t.Fatalf("recipient list failed: %v", err)
	}
	if len(received.Profiles) != 1 {
		t.Fatalf("expected one edge for the recipient, got %d", len(received.Profiles))
	}
	item := received.Profiles[0]
	if item.ShareMessage != "we would love to play here" {
		t.Fatalf("message lost: %q", item.ShareMessage)
	}
	if item.User.Profile.Name != "Touring Band" {
		t.Fatalf("expected sharer profile joined onto the edge, got %#v", item.User)
	}

	sharerSide, err := env.sharing.List(context.Background(), "ext-band", 1, 9)
	if err != nil {
		t.Fatalf("sharer list failed: %v", err)
	}
	if len(sharerSide.Profiles) != 0 {
		t.Fatalf("sharer must not see their own outgoing edge, got %d", len(sharerSide.Profiles))
	}
}

func TestListOrdersNewestShareFirst(t *testing.T) {
	env := newTestEnv(t)
	env.createProfile(t, "ext-band-1", "Early Band", users.ProfileTypeBand)
	env.createProfile(t, "ext-band-2", "Late Band", users.ProfileTypeBand)
	venue := env.createProfile(t, "ext-venue", "Riverside Hall", users.ProfileTypeGigProvider)

	early, err := env.sharing.Share(context.Background(), "ext-band-1", venue.UserID, "first")
	if err != nil {
		t.Fatalf("first share failed: %v", err)
	}
	if err := env.db.Model(&SharedProfile{}).Where("id = ?", early.ID).
		Update("share_date", time.Unix(1600000000, 0).UTC()).Error; err != nil {
		t.Fatalf("backdating edge failed: %v", err)
	}
	if _, err := env.sharing.Share(context.Background(), "ext-band-2", venue.UserID, "second"); err != nil {
		t.Fatalf("second share failed: %v", err)
	}

	page, err := env.sharing.List(context.Background(), "ext-venue", 1, 9)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Profiles) != 2 || page.TotalPages != 1 {
		t.Fatalf("unexpected page shape: %d items, %d pages", len(page.Profiles), page.TotalPages)
	}
	if page.Profiles[0].ShareMessage != "second" {
		t.Fatalf("expected newest share first, got %q", page.Profiles[0].ShareMessage)
	}
}

func TestDeleteRemovesOwnReceivedEdge(t *testing.T) {
	env := newTestEnv(t)
	env.createProfile(t, "ext-band", "Touring Band", users.ProfileTypeBand)
	venue := env.createProfile(t, "ext-venue", "Riverside Hall", users.ProfileTypeGigProvider)

	edge, err := env.sharing.Share(context.Background(), "ext-band", venue.UserID, "hello")
	if err != nil {
		t.Fatalf("share failed: %v", err)
	}

	if err := env.sharing.Delete(context.Background(), "ext-venue", edge.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	page, err := env.sharing.List(context.Background(), "ext-venue", 1, 9)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Profiles) != 0 {
		t.Fatalf("edge survived deletion: %#v", page.Profiles)
	}
}

func TestDeleteFailsForForeignOrMissingEdge(t *testing.T) {
	env := newTestEnv(t)
	env.createProfile(t, "ext-band", "Touring Band", users.ProfileTypeBand)
	venue := env.createProfile(t, "ext-venue", "Riverside Hall", users.ProfileTypeGigProvider)

	edge, err := env.sharing.Share(context.Background(), "ext-band", venue.UserID, "hello")
	if err != nil {
		t.Fatalf("share failed: %v", err)
	}

	if err := env.sharing.Delete(context.Background(), "ext-band", edge.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("sharer must not delete a received edge, got %v", err)
	}
	if err := env.sharing.Delete(context.Background(), "ext-venue", "missing-edge"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing edge, got %v", err)
	}
}
