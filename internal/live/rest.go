package live

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/regattaflow/trackcore/internal/cache"
	"github.com/regattaflow/trackcore/internal/constants"
	"github.com/regattaflow/trackcore/internal/logging"
	"github.com/regattaflow/trackcore/internal/models"
)

// RestClient wraps the live feed's REST surface. Every accessor is
// best-effort: a failed or non-success response comes back as nil/empty, with
// the cause in the logs, so upstream absence never turns into a caller-facing
// error. Event, race, and history lookups are cached briefly; boat snapshots
// are always fetched fresh because the polling fallback depends on them.
type RestClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client

	cache cache.Cache
	ttl   time.Duration
}

// NewRestClient builds a REST client for the live feed. The cache may be nil
// to disable lookup caching.
func NewRestClient(baseURL, apiKey string, timeout time.Duration, c cache.Cache, lookupTTL time.Duration) *RestClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RestClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
		cache:   c,
		ttl:     lookupTTL,
	}
}

// GetEvent fetches one event, or nil when the lookup fails.
func (p *RestClient) GetEvent(ctx context.Context, eventID string) *models.RaceEvent {
	if eventID == "" {
		return nil
	}
	key := string(constants.CachePrefixEvent) + eventID
	val, err := p.cached(key, func() (interface{}, error) {
		var ev models.RaceEvent
		if err := p.doGET(ctx, "/events/"+eventID, &ev); err != nil {
			return nil, err
		}
		return &ev, nil
	})
	if err != nil {
		logging.Warn("live event lookup failed", "event_id", eventID, "error", err)
		return nil
	}
	return val.(*models.RaceEvent)
}

// GetRaces fetches the races of an event, or nil when the lookup fails.
func (p *RestClient) GetRaces(ctx context.Context, eventID string) []models.Race {
	if eventID == "" {
		return nil
	}
	key := string(constants.CachePrefixRaces) + eventID
	val, err := p.cached(key, func() (interface{}, error) {
		var races []models.Race
		if err := p.doGET(ctx, "/events/"+eventID+"/races", &races); err != nil {
			return nil, err
		}
		if races == nil {
			races = []models.Race{}
		}
		return races, nil
	})
	if err != nil {
		logging.Warn("live races lookup failed", "event_id", eventID, "error", err)
		return nil
	}
	return val.([]models.Race)
}

// GetBoats fetches the current boat snapshots for an event, optionally
// scoped to one race. A nil result means the lookup failed; an empty slice
// means the feed knows no boats. Never cached: the polling fallback
// synthesizes position updates from this snapshot and needs it fresh.
func (p *RestClient) GetBoats(ctx context.Context, eventID, raceID string) []models.BoatEntry {
	if eventID == "" {
		return nil
	}
	endpoint := "/events/" + eventID + "/boats"
	if raceID != "" {
		endpoint = "/events/" + eventID + "/races/" + raceID + "/boats"
	}

	var boats []models.BoatEntry
	if err := p.doGET(ctx, endpoint, &boats); err != nil {
		logging.Warn("live boats lookup failed", "event_id", eventID, "race_id", raceID, "error", err)
		return nil
	}
	if boats == nil {
		boats = []models.BoatEntry{}
	}
	return boats
}

// GetTrackHistory fetches a boat's recorded feed trace, or nil when the
// lookup fails.
func (p *RestClient) GetTrackHistory(ctx context.Context, eventID, raceID, boatID string) *models.TrackHistory {
	if eventID == "" || raceID == "" || boatID == "" {
		return nil
	}
	key := fmt.Sprintf("%s%s:%s:%s", constants.CachePrefixTrackHistory, eventID, raceID, boatID)
	val, err := p.cached(key, func() (interface{}, error) {
		var hist models.TrackHistory
		endpoint := "/events/" + eventID + "/races/" + raceID + "/boats/" + boatID + "/history"
		if err := p.doGET(ctx, endpoint, &hist); err != nil {
			return nil, err
		}
		return &hist, nil
	})
	if err != nil {
		logging.Warn("track history lookup failed", "boat_id", boatID, "error", err)
		return nil
	}
	return val.(*models.TrackHistory)
}

// cached runs loader through the lookup cache when one is configured.
// Failures are never cached.
func (p *RestClient) cached(key string, loader func() (interface{}, error)) (interface{}, error) {
	if p.cache == nil || p.ttl <= 0 {
		return loader()
	}
	return p.cache.GetOrSet(key, p.ttl, loader)
}

// doGET performs an authenticated GET and decodes the JSON response.
func (p *RestClient) doGET(ctx context.Context, endpoint string, result interface{}) error {
	url := p.BaseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", endpoint, err)
	}

	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, endpoint, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}
