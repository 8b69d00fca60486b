package enrichment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/inboxreel/inboxreel/internal/enrichment/domain"
	"github.com/inboxreel/inboxreel/internal/enrichment/youtube"
)

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISO8601Duration parses a "PT[nH][nM][nS]" period into seconds;
// missing components default to 0.
func parseISO8601Duration(period string) (int, error) {
	m := isoDurationPattern.FindStringSubmatch(period)
	if m == nil {
		return 0, fmt.Errorf("malformed duration %q", period)
	}
	hours := atoiOrZero(m[1])
	minutes := atoiOrZero(m[2])
	seconds := atoiOrZero(m[3])
	return hours*3600 + minutes*60 + seconds, nil
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// descriptionKeywords splits text on whitespace and retains the first 20
// tokens of length > 3.
func descriptionKeywords(description string) []string {
	fields := strings.Fields(description)
	keywords := make([]string, 0, 20)
	for _, f := range fields {
		if len(keywords) == 20 {
			break
		}
		if len(f) > 3 {
			keywords = append(keywords, f)
		}
	}
	return keywords
}

// parseItem converts one raw youtube.Item into a VideoMetadata row,
// tolerating a malformed publishedAt or duration by zeroing the field
// rather than discarding the whole item.
func parseItem(item youtube.Item) (domain.VideoMetadata, error) {
	if item.VideoID == "" {
		return domain.VideoMetadata{}, fmt.Errorf("item missing video id")
	}

	published, err := time.Parse(time.RFC3339, item.PublishedAt)
	if err != nil {
		published = time.Time{}
	}

	duration, err := parseISO8601Duration(item.Duration)
	if err != nil {
		duration = 0
	}

	return domain.VideoMetadata{
		VideoID:             item.VideoID,
		Title:               item.Title,
		ChannelID:           item.ChannelID,
		ChannelTitle:        item.ChannelTitle,
		PublishedAt:         published,
		DurationSeconds:     duration,
		Category:            item.Category,
		DescriptionKeywords: descriptionKeywords(item.Description),
		ThumbnailURL:        item.ThumbnailURL,
		ViewCount:           item.ViewCount,
		LikeCount:           item.LikeCount,
	}, nil
}
