package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/ecwilsonaz/plexsage/internal/shared"
)

// PlexService implements [MediaSource] against a Plex-style HTTP API.
//
// Requests are authenticated with the X-Plex-Token header and ask for JSON
// responses. The music section key is resolved once and reused.
type PlexService struct {
	baseURL    string
	token      string
	library    string
	httpClient *http.Client

	mu         sync.Mutex
	sectionKey string
}

// NewPlexService creates a new PlexService for the given server URL and token.
// library is the title of the music section to sync (default "Music").
func NewPlexService(baseURL, token, library string, client *http.Client) *PlexService {
	if library == "" {
		library = "Music"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &PlexService{
		baseURL:    baseURL,
		token:      token,
		library:    library,
		httpClient: client,
	}
}

// Name identifies the source implementation for logging.
func (p *PlexService) Name() string { return "plex" }

// plexContainer mirrors the MediaContainer envelope of Plex JSON responses.
type plexContainer struct {
	MediaContainer struct {
		Size              int    `json:"size"`
		TotalSize         int    `json:"totalSize"`
		MachineIdentifier string `json:"machineIdentifier"`
		Directory         []struct {
			Key   string `json:"key"`
			Title string `json:"title"`
			Type  string `json:"type"`
		} `json:"Directory"`
		Metadata []plexTrack `json:"Metadata"`
	} `json:"MediaContainer"`
}

type plexTrack struct {
	RatingKey        string   `json:"ratingKey"`
	Title            string   `json:"title"`
	GrandparentTitle string   `json:"grandparentTitle"`
	ParentTitle      string   `json:"parentTitle"`
	Duration         int      `json:"duration"`
	Year             *int     `json:"year"`
	ParentYear       *int     `json:"parentYear"`
	UserRating       *float64 `json:"userRating"`
	Genre            []struct {
		Tag string `json:"tag"`
	} `json:"Genre"`
}

// get performs an authenticated JSON GET against the server.
func (p *PlexService) get(ctx context.Context, path string, params url.Values) (*plexContainer, error) {
	fullURL := p.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %d for %s", shared.ErrRemoteUnreachable, resp.StatusCode, path)
	}

	var container plexContainer
	if err := json.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrRemoteUnreachable, err)
	}

	return &container, nil
}

// Identity returns the server's machine identifier.
func (p *PlexService) Identity(ctx context.Context) (string, error) {
	container, err := p.get(ctx, "/identity", nil)
	if err != nil {
		return "", err
	}

	id := container.MediaContainer.MachineIdentifier
	if id == "" {
		return "", fmt.Errorf("%w: server reported no machine identifier", shared.ErrRemoteUnreachable)
	}

	return id, nil
}

// section resolves and caches the key of the configured music library section.
func (p *PlexService) section(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sectionKey != "" {
		return p.sectionKey, nil
	}

	container, err := p.get(ctx, "/library/sections", nil)
	if err != nil {
		return "", err
	}

	for _, dir := range container.MediaContainer.Directory {
		if dir.Type == "artist" && dir.Title == p.library {
			p.sectionKey = dir.Key
			return p.sectionKey, nil
		}
	}

	return "", fmt.Errorf("%w: music library %q not found", shared.ErrRemoteUnreachable, p.library)
}

// TotalCount returns the number of tracks in the music section.
func (p *PlexService) TotalCount(ctx context.Context) (int, error) {
	key, err := p.section(ctx)
	if err != nil {
		return 0, err
	}

	params := url.Values{}
	params.Set("type", "10") // tracks
	params.Set("X-Plex-Container-Start", "0")
	params.Set("X-Plex-Container-Size", "0")

	container, err := p.get(ctx, "/library/sections/"+key+"/all", params)
	if err != nil {
		return 0, err
	}

	return container.MediaContainer.TotalSize, nil
}

// FetchBatch returns up to size tracks starting at offset, converted to
// raw records.
func (p *PlexService) FetchBatch(ctx context.Context, offset, size int) ([]RawTrack, error) {
	key, err := p.section(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("type", "10")
	params.Set("X-Plex-Container-Start", strconv.Itoa(offset))
	params.Set("X-Plex-Container-Size", strconv.Itoa(size))

	container, err := p.get(ctx, "/library/sections/"+key+"/all", params)
	if err != nil {
		return nil, err
	}

	tracks := make([]RawTrack, 0, len(container.MediaContainer.Metadata))
	for _, meta := range container.MediaContainer.Metadata {
		tracks = append(tracks, convertPlexTrack(meta))
	}

	return tracks, nil
}

// convertPlexTrack maps a Plex metadata record to a raw track. The album
// year wins over the track year when both are present; ratings are rounded
// to the 0-10 integer scale.
func convertPlexTrack(meta plexTrack) RawTrack {
	raw := RawTrack{
		RatingKey:  meta.RatingKey,
		Title:      meta.Title,
		Artist:     meta.GrandparentTitle,
		Album:      meta.ParentTitle,
		DurationMS: meta.Duration,
	}

	if raw.Artist == "" {
		raw.Artist = "Unknown Artist"
	}

	if meta.ParentYear != nil {
		raw.Year = meta.ParentYear
	} else if meta.Year != nil {
		raw.Year = meta.Year
	}

	if meta.UserRating != nil {
		rating := int(*meta.UserRating + 0.5)
		if rating > 10 {
			rating = 10
		}
		raw.UserRating = &rating
	}

	for _, genre := range meta.Genre {
		if genre.Tag != "" {
			raw.Genres = append(raw.Genres, genre.Tag)
		}
	}

	return raw
}
