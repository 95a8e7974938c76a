package profiles

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"
)

func seedBands(t *testing.T, db *gorm.DB, count int) {
	t.Helper()
	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < count; i++ {
		band := Band{
			ID:          fmt.Sprintf("band-%03d", i),
			UserID:      fmt.Sprintf("user-%03d", i),
			Name:        fmt.Sprintf("Band %03d", i),
			Genre:       "jazz",
			Location:    "Cologne",
			Description: "standards and originals",
			Photos:      StringList{},
			AudioTracks: TrackList{},
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&band).Error; err != nil {
			t.Fatalf("seeding band %d failed: %v", i, err)
		}
	}
}

func TestListBandsFiltersCaseInsensitivelyAcrossColumns(t *testing.T) {
	service, db := newTestService(t)
	rows := []Band{
		{ID: "b1", UserID: "u1", Name: "Velvet Thunder", Genre: "rock", Location: "Munich", Description: "loud"},
		{ID: "b2", UserID: "u2", Name: "Quiet Trio", Genre: "Jazz Fusion", Location: "Berlin", Description: "subtle"},
		{ID: "b3", UserID: "u3", Name: "Brass Works", Genre: "ska", Location: "Hamburg", Description: "thunderous horns"},
	}
	for i := range rows {
		rows[i].Photos = StringList{}
		rows[i].AudioTracks = TrackList{}
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	page, err := service.ListBands(context.Background(), "THUNDER", DefaultPage, DefaultLimit)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected matches on name and description, got %d", len(page.Items))
	}

	page, err = service.ListBands(context.Background(), "jazz", DefaultPage, DefaultLimit)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "b2" {
		t.Fatalf("expected genre match, got %#v", page.Items)
	}
}

func TestListBandsPaginatesNewestFirst(t *testing.T) {
	service, db := newTestService(t)
	seedBands(t, db, 12)

	first, err := service.ListBands(context.Background(), "", 1, 5)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(first.Items) != 5 || first.TotalPages != 3 || first.CurrentPage != 1 {
		t.Fatalf("unexpected first page shape: %d items, %d pages", len(first.Items), first.TotalPages)
	}
	if first.Items[0].ID != "band-011" {
		t.Fatalf("expected newest band first, got %q", first.Items[0].ID)
	}

	last, err := service.ListBands(context.Background(), "", 3, 5)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(last.Items) != 2 {
		t.Fatalf("expected trailing page of 2, got %d", len(last.Items))
	}
	if last.Items[1].ID != "band-000" {
		t.Fatalf("expected oldest band last, got %q", last.Items[1].ID)
	}
}

func TestListBandsPageBeyondRangeIsEmptyButValid(t *testing.T) {
	service, db := newTestService(t)
	seedBands(t, db, 3)

	page, err := service.ListBands(context.Background(), "", 7, DefaultLimit)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("expected empty materialized items, got %#v", page.Items)
	}
	if page.TotalPages != 1 || page.CurrentPage != 7 {
		t.Fatalf("unexpected page metadata: %d/%d", page.TotalPages, page.CurrentPage)
	}
}

func TestListGigProvidersFiltersOnServices(t *testing.T) {
	service, db := newTestService(t)
	rows := []GigProvider{
		{ID: "g1", UserID: "u1", Name: "Open Stage", Services: "PA and lighting", Location: "Bremen", Description: "weekly slots"},
		{ID: "g2", UserID: "u2", Name: "Cellar Club", Services: "backline", Location: "Leipzig", Description: "intimate room"},
	}
	for i := range rows {
		rows[i].Photos = StringList{}
		rows[i].AudioTracks = TrackList{}
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	page, err := service.ListGigProviders(context.Background(), "lighting", DefaultPage, DefaultLimit)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "g1" {
		t.Fatalf("expected services match, got %#v", page.Items)
	}
}

func TestTotalPagesRoundsUp(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 9, 0},
		{1, 9, 1},
		{9, 9, 1},
		{10, 9, 2},
		{5, 0, 0},
	}
	for _, c := range cases {
		if got := totalPages(c.total, c.limit); got != c.want {
			t.Fatalf("totalPages(%d, %d) = %d, want %d", c.total, c.limit, got, c.want)
		}
	}
}
