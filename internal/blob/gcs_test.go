package blob

import "testing"

func newURLOnlyStore() *Store {
	return &Store{bucket: "stagematch-media", apiHost: defaultAPIHost}
}

func TestDownloadURLEscapesObjectPath(t *testing.T) {
	store := newURLOnlyStore()

	got := store.DownloadURL("audio-tracks/1700000000000-demo.mp3")
	want := "https://storage.googleapis.com/storage/v1/b/stagematch-media/o/audio-tracks%2F1700000000000-demo.mp3?alt=media"
	if got != want {
		t.Fatalf("DownloadURL = %q, want %q", got, want)
	}
}

func TestPathFromURLInvertsDownloadURL(t *testing.T) {
	store := newURLOnlyStore()
	path := "audio-tracks/1700000000000-demo.mp3"

	recovered, ok := store.PathFromURL(store.DownloadURL(path))
	if !ok || recovered != path {
		t.Fatalf("PathFromURL round trip failed: %q %v", recovered, ok)
	}
}

func TestPathFromURLRejectsForeignURLs(t *testing.T) {
	store := newURLOnlyStore()

	cases := []string{
		"https://storage.googleapis.com/storage/v1/b/other-bucket/o/file.mp3?alt=media",
		"https://example.com/file.mp3",
		"://not-a-url",
	}
	for _, raw := range cases {
		if _, ok := store.PathFromURL(raw); ok {
			t.Fatalf("expected rejection for %q", raw)
		}
	}
}

func TestNewStoreValidatesInputs(t *testing.T) {
	if _, err := NewStore(nil, "bucket", ""); err == nil {
		t.Fatalf("expected error for missing client")
	}
}
