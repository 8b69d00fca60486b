// Package youtube wraps google.golang.org/api/youtube/v3's videos.list
// batch call, the Enrichment
// Client's sole upstream collaborator.
package youtube

import (
	"context"
	"fmt"

	youtubeapi "google.golang.org/api/youtube/v3"
	"google.golang.org/api/option"
)

type Client struct {
	svc *youtubeapi.Service
}

func New(ctx context.Context, apiKey string) (*Client, error) {
	svc, err := youtubeapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("youtube: create service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Item is the raw subset of a youtube#video resource the Enrichment
// Client's parser needs.
type Item struct {
	VideoID      string
	Title        string
	ChannelID    string
	ChannelTitle string
	PublishedAt  string // raw ISO-8601 timestamp string, parsed by the caller
	Duration     string // raw ISO-8601 period string ("PT1H2M10S"), parsed by the caller
	Category     string
	Description  string
	ThumbnailURL string
	ViewCount    uint64
	LikeCount    uint64
}

// List fetches up to 50 ids in one call requesting
// {snippet, contentDetails, statistics}.
func (c *Client) List(ctx context.Context, videoIDs []string) ([]Item, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	resp, err := c.svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoIDs...).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(resp.Items))
	for _, v := range resp.Items {
		item := Item{VideoID: v.Id}
		if v.Snippet != nil {
			item.Title = v.Snippet.Title
			item.ChannelID = v.Snippet.ChannelId
			item.ChannelTitle = v.Snippet.ChannelTitle
			item.PublishedAt = v.Snippet.PublishedAt
			item.Description = v.Snippet.Description
			if v.Snippet.CategoryId != "" {
				item.Category = v.Snippet.CategoryId
			}
			if v.Snippet.Thumbnails != nil && v.Snippet.Thumbnails.High != nil {
				item.ThumbnailURL = v.Snippet.Thumbnails.High.Url
			}
		}
		if v.ContentDetails != nil {
			item.Duration = v.ContentDetails.Duration
		}
		if v.Statistics != nil {
			item.ViewCount = v.Statistics.ViewCount
			item.LikeCount = v.Statistics.LikeCount
		}
		items = append(items, item)
	}
	return items, nil
}
