package opening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPlaylistBaseURL = "https://www.googleapis.com/youtube/v3"
	playlistPageSize       = 50
)

var ErrEmptyPlaylist = errors.New("playlist has no playable videos")

type PlaylistConfig struct {
	PlaylistID string
	APIKey     string
	CachePath  string
	BaseURL    string
	Timeout    time.Duration
	// RetryAfter is how long a failed load is remembered before the next
	// call tries the cache and the API again.
	RetryAfter time.Duration
	Client     *http.Client
}

// Playlist loads openings from a YouTube playlist once, keeps them in memory
// and mirrors them to a CSV cache so restarts skip the API.
type Playlist struct {
	cfg    PlaylistConfig
	client *http.Client
	log    *zap.Logger
	group  singleflight.Group
	now    func() time.Time

	mu       sync.Mutex
	openings []Opening
	failedAt time.Time
	lastErr  error
}

func NewPlaylist(cfg PlaylistConfig, log *zap.Logger) *Playlist {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPlaylistBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = time.Minute
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Playlist{cfg: cfg, client: client, log: log, now: time.Now}
}

// All loads the playlist on first use. After a failed load it returns the
// same error without any I/O until RetryAfter has passed, so a dead API costs
// one timeout per interval rather than one per call.
func (p *Playlist) All(ctx context.Context) ([]Opening, error) {
	if cached := p.snapshot(); cached != nil {
		return cached, nil
	}
	if err := p.recentFailure(); err != nil {
		return nil, err
	}
	_, err, _ := p.group.Do("load", func() (any, error) {
		err := p.load(ctx)
		p.recordLoad(ctx, err)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return p.snapshot(), nil
}

func (p *Playlist) recentFailure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastErr == nil {
		return nil
	}
	wait := p.cfg.RetryAfter - p.now().Sub(p.failedAt)
	if wait <= 0 {
		return nil
	}
	return fmt.Errorf("playlist unavailable, next attempt in %s: %w", wait.Round(time.Second), p.lastErr)
}

func (p *Playlist) recordLoad(ctx context.Context, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case err == nil:
		p.failedAt, p.lastErr = time.Time{}, nil
	case ctx.Err() != nil:
		// the caller gave up; that says nothing about the API
	default:
		p.failedAt, p.lastErr = p.now(), err
		p.log.Warn("playlist load failed", zap.Duration("retry_after", p.cfg.RetryAfter), zap.Error(err))
	}
}

func (p *Playlist) MarkListened(ctx context.Context, id string) error {
	if _, err := p.All(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.IndexFunc(p.openings, func(o Opening) bool { return o.ID == id })
	if i < 0 {
		return ErrOpeningNotFound
	}
	if p.openings[i].Listened {
		return nil
	}
	p.openings[i].Listened = true
	return p.persistLocked()
}

func (p *Playlist) ResetListened(ctx context.Context) error {
	if _, err := p.All(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.openings {
		p.openings[i].Listened = false
	}
	return p.persistLocked()
}

func (p *Playlist) snapshot() []Opening {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openings == nil {
		return nil
	}
	return slices.Clone(p.openings)
}

func (p *Playlist) persistLocked() error {
	if p.cfg.CachePath == "" {
		return nil
	}
	return writeCache(p.cfg.CachePath, p.openings)
}

func (p *Playlist) load(ctx context.Context) error {
	if p.cfg.CachePath != "" {
		cached, err := readCache(p.cfg.CachePath)
		if err != nil {
			p.log.Warn("ignoring unreadable opening cache", zap.String("path", p.cfg.CachePath), zap.Error(err))
		}
		if len(cached) > 0 {
			p.log.Info("openings loaded from cache", zap.Int("count", len(cached)))
			p.mu.Lock()
			p.openings = cached
			p.mu.Unlock()
			return nil
		}
	}

	fetched, err := p.fetch(ctx)
	if err != nil {
		return err
	}
	if len(fetched) == 0 {
		return ErrEmptyPlaylist
	}
	p.log.Info("openings fetched from playlist", zap.String("playlist_id", p.cfg.PlaylistID), zap.Int("count", len(fetched)))

	p.mu.Lock()
	defer p.mu.Unlock()
	p.openings = fetched
	if err := p.persistLocked(); err != nil {
		p.log.Warn("could not write opening cache", zap.String("path", p.cfg.CachePath), zap.Error(err))
	}
	return nil
}

type playlistPage struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title                  string `json:"title"`
			VideoOwnerChannelTitle string `json:"videoOwnerChannelTitle"`
			ResourceID             struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

func (p *Playlist) fetch(ctx context.Context) ([]Opening, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	var out []Opening
	token := ""
	for {
		page, err := p.fetchPage(ctx, token)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			s := item.Snippet
			if s.ResourceID.VideoID == "" || s.Title == "Deleted video" || s.Title == "Private video" {
				continue
			}
			out = append(out, Opening{
				ID:           s.ResourceID.VideoID,
				AnimeTitle:   animeTitle(s.Title, s.VideoOwnerChannelTitle),
				OpeningTitle: s.Title,
				AudioURL:     embedPrefix + s.ResourceID.VideoID,
			})
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		token = page.NextPageToken
	}
}

func (p *Playlist) fetchPage(ctx context.Context, token string) (*playlistPage, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("maxResults", fmt.Sprint(playlistPageSize))
	q.Set("playlistId", p.cfg.PlaylistID)
	q.Set("key", p.cfg.APIKey)
	if token != "" {
		q.Set("pageToken", token)
	}
	endpoint := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/playlistItems?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	res, err := p.client.Do(req)
	if err != nil {
		// url.Error would echo the API key back through the logs
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("fetch playlist page: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("fetch playlist page: status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	var page playlistPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode playlist page: %w", err)
	}
	return &page, nil
}
