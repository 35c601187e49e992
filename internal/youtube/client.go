package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/phrazzld/blogtube-api/internal/cache"
	"golang.org/x/time/rate"
)

const (
	defaultOEmbedURL = "https://www.youtube.com/oembed"
	defaultWatchURL  = "https://www.youtube.com/watch"

	// maxPageBytes bounds how much of a watch page is read.
	maxPageBytes = 8 << 20
)

// Config holds the client settings.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	HTTPTimeout       time.Duration

	// OEmbedURL and WatchURL override the YouTube endpoints, for tests.
	OEmbedURL string
	WatchURL  string
}

// VideoInfo is the metadata of one video.
type VideoInfo struct {
	VideoID      string `json:"video_id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// FallbackInfo returns the metadata used when oEmbed cannot be reached.
func FallbackInfo(videoID string) VideoInfo {
	return VideoInfo{
		VideoID: videoID,
		URL:     WatchURL(videoID),
		Title:   "YouTube Video " + videoID,
	}
}

// Client is safe for concurrent use.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	cache     *cache.Cache
	oembedURL string
	watchURL  string
	logger    *slog.Logger
}

// NewClient creates a Client that caches results in c.
func NewClient(cfg Config, c *cache.Cache, logger *slog.Logger) *Client {
	if c == nil {
		panic("cache cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, burst),
		cache:     c,
		oembedURL: cfg.OEmbedURL,
		watchURL:  cfg.WatchURL,
		logger:    logger.With("component", "youtube_client"),
	}
	if client.oembedURL == "" {
		client.oembedURL = defaultOEmbedURL
	}
	if client.watchURL == "" {
		client.watchURL = defaultWatchURL
	}
	return client
}

func videoInfoKey(videoID string) string { return "video_info:" + videoID }

func variantsKey(videoID string) string { return "transcript_languages:" + videoID }

// Resolve returns the metadata of the video rawURL points at.
//
// It returns ErrInvalidURL when no video id can be extracted,
// ErrVideoNotFound when YouTube reports the video as missing or private and
// ErrTransient for network and upstream failures.
func (c *Client) Resolve(ctx context.Context, rawURL string) (VideoInfo, error) {
	videoID, err := ParseVideoID(rawURL)
	if err != nil {
		return VideoInfo{}, err
	}

	if info, ok := cache.GetAs[VideoInfo](c.cache, videoInfoKey(videoID)); ok {
		return info, nil
	}

	query := url.Values{}
	query.Set("url", WatchURL(videoID))
	query.Set("format", "json")

	resp, err := c.get(ctx, c.oembedURL+"?"+query.Encode())
	if err != nil {
		return VideoInfo{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusBadRequest:
		return VideoInfo{}, fmt.Errorf("%w: oembed status %d for %s", ErrVideoNotFound, resp.StatusCode, videoID)
	default:
		return VideoInfo{}, fmt.Errorf("%w: oembed status %d", ErrTransient, resp.StatusCode)
	}

	var payload struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return VideoInfo{}, fmt.Errorf("%w: invalid oembed response: %w", ErrTransient, err)
	}

	info := FallbackInfo(videoID)
	if payload.Title != "" {
		info.Title = payload.Title
	}
	info.AuthorName = payload.AuthorName
	info.ThumbnailURL = payload.ThumbnailURL

	c.cache.Set(videoInfoKey(videoID), info, cache.CategoryMetadata)
	c.logger.Debug("resolved video metadata", "video_id", videoID, "title", info.Title)
	return info, nil
}

// get performs a rate-limited GET request. Transport failures are reported
// as ErrTransient unless ctx itself is done.
func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return resp, nil
}

// readBody reads at most maxPageBytes of resp.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrTransient, err)
	}
	return body, nil
}

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
