// Package canonical recognizes and normalizes references to the target
// video platform across its several URL shapes.
package canonical

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Kind distinguishes a canonicalized video reference from a playlist-only
// one.
type Kind string

const (
	KindVideo    Kind = "video"
	KindPlaylist Kind = "playlist"
)

// Reference is one recognized, canonicalized URL.
type Reference struct {
	CanonicalURL string
	VideoID      string // empty for playlist-only references
	PlaylistID   string // empty unless a list= param was present
	Kind         Kind
}

// Canonicalize recognizes one URL and normalizes it to
// https://www.youtube.com/watch?v={video-id}[&list={playlist-id}] (a
// playlist-only URL normalizes to
// https://www.youtube.com/playlist?list={playlist-id}), or returns ok=false if the URL doesn't match a recognized shape or its
// extracted id fails validation.
func Canonicalize(raw string) (Reference, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return Reference{}, false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")

	var videoID, playlistID string

	switch {
	case host == "youtube.com" || host == "m.youtube.com":
		switch {
		case u.Path == "/watch":
			videoID = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			videoID = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/v/"):
			videoID = strings.TrimPrefix(u.Path, "/v/")
		case u.Path == "/playlist":
			playlistID = u.Query().Get("list")
			if playlistID == "" {
				return Reference{}, false
			}
			return Reference{
				CanonicalURL: "https://www.youtube.com/playlist?list=" + playlistID,
				PlaylistID:   playlistID,
				Kind:         KindPlaylist,
			}, true
		default:
			return Reference{}, false
		}
		playlistID = u.Query().Get("list")
	case host == "youtu.be":
		videoID = strings.TrimPrefix(u.Path, "/")
	default:
		return Reference{}, false
	}

	if !videoIDPattern.MatchString(videoID) {
		return Reference{}, false
	}

	canonical := "https://www.youtube.com/watch?v=" + videoID
	if playlistID != "" {
		canonical += "&list=" + playlistID
	}
	return Reference{CanonicalURL: canonical, VideoID: videoID, PlaylistID: playlistID, Kind: KindVideo}, true
}

// ExtractAndCanonicalize scans free text for URL-shaped substrings,
// canonicalizes each recognized one, and collapses duplicates by
// video-id within the same call.
func ExtractAndCanonicalize(text string) []Reference {
	candidates := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{})
	out := make([]Reference, 0, len(candidates))

	for _, candidate := range candidates {
		ref, ok := Canonicalize(candidate)
		if !ok {
			continue
		}
		key := ref.VideoID
		if key == "" {
			key = "playlist:" + ref.PlaylistID
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ref)
	}
	return out
}
