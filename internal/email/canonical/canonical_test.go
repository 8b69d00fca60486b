package canonical

import "testing"

func TestCanonicalizeRecognizedShapes(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantID  string
		wantURL string
		wantOK  bool
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"watch with tracking params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&si=abc123&feature=share", "dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"old v path", "https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"watch plus playlist", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL12345", "dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL12345", true},
		{"unrecognized host", "https://vimeo.com/12345", "", "", false},
		{"invalid video id length", "https://youtu.be/short", "", "", false},
		{"no host", "not a url", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ref, ok := Canonicalize(tc.raw)
			if ok != tc.wantOK {
				t.Fatalf("Canonicalize(%q) ok = %v, want %v", tc.raw, ok, tc.wantOK)
			}
			if !tc.wantOK {
				return
			}
			if ref.VideoID != tc.wantID {
				t.Errorf("VideoID = %q, want %q", ref.VideoID, tc.wantID)
			}
			if ref.CanonicalURL != tc.wantURL {
				t.Errorf("CanonicalURL = %q, want %q", ref.CanonicalURL, tc.wantURL)
			}
		})
	}
}

func TestCanonicalizePlaylistOnly(t *testing.T) {
	ref, ok := Canonicalize("https://www.youtube.com/playlist?list=PLxyz")
	if !ok {
		t.Fatal("expected playlist url to canonicalize")
	}
	if ref.Kind != KindPlaylist {
		t.Errorf("Kind = %q, want %q", ref.Kind, KindPlaylist)
	}
	if ref.PlaylistID != "PLxyz" {
		t.Errorf("PlaylistID = %q, want PLxyz", ref.PlaylistID)
	}
	if ref.VideoID != "" {
		t.Errorf("VideoID = %q, want empty", ref.VideoID)
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	ref, ok := Canonicalize("https://youtu.be/dQw4w9WgXcQ?si=tracking")
	if !ok {
		t.Fatal("expected url to canonicalize")
	}
	again, ok := Canonicalize(ref.CanonicalURL)
	if !ok {
		t.Fatal("expected canonical url to re-canonicalize")
	}
	if again.CanonicalURL != ref.CanonicalURL {
		t.Errorf("re-canonicalization changed the url: %q != %q", again.CanonicalURL, ref.CanonicalURL)
	}
}

func TestExtractAndCanonicalizeDedupsWithinMessage(t *testing.T) {
	text := `Check this out: https://www.youtube.com/watch?v=dQw4w9WgXcQ
	and again via short link https://youtu.be/dQw4w9WgXcQ?t=30
	plus something unrelated https://example.com/page`

	refs := ExtractAndCanonicalize(text)
	if len(refs) != 1 {
		t.Fatalf("expected 1 deduped reference, got %d: %+v", len(refs), refs)
	}
	if refs[0].VideoID != "dQw4w9WgXcQ" {
		t.Errorf("VideoID = %q, want dQw4w9WgXcQ", refs[0].VideoID)
	}
}

func TestExtractAndCanonicalizeMultipleDistinctVideos(t *testing.T) {
	text := "https://youtu.be/dQw4w9WgXcQ and https://youtu.be/aaaaaaaaaaa"
	refs := ExtractAndCanonicalize(text)
	if len(refs) != 2 {
		t.Fatalf("expected 2 distinct references, got %d", len(refs))
	}
}

func TestExtractAndCanonicalizeNoMatches(t *testing.T) {
	refs := ExtractAndCanonicalize("no links here at all")
	if len(refs) != 0 {
		t.Fatalf("expected 0 references, got %d", len(refs))
	}
}
