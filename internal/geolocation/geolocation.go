// Package geolocation resolves client IPs to approximate locations.
// The provider is opaque and best-effort: lookups feed session metadata
// and approval emails, never authorization decisions.
package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/passage/internal/cache"
	"github.com/smallbiznis/passage/internal/config"
	"go.uber.org/zap"
)

// UnknownLocation is the display name used when resolution fails.
const UnknownLocation = "Unknown location"

// Location is the approximate geography of an IP.
type Location struct {
	City        string `json:"city"`
	Region      string `json:"region"`
	Timezone    string `json:"timezone"`
	CountryCode string `json:"countryCode"`
}

// Name renders a human-readable place name for notification emails.
func (l Location) Name() string {
	var parts []string
	for _, p := range []string{l.City, l.Region, l.CountryCode} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	if len(parts) == 0 {
		return UnknownLocation
	}
	return strings.Join(parts, ", ")
}

// Resolver maps an IP to a Location.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (Location, error)
}

var errNoProvider = errors.New("no geolocation provider configured")

type httpResolver struct {
	log     *zap.Logger
	baseURL string
	client  *http.Client
}

// NewHTTPResolver queries a JSON lookup endpoint (GET <base>/<ip>).
// An empty base URL yields a resolver that always fails, which callers
// treat as "Unknown location".
func NewHTTPResolver(log *zap.Logger, cfg config.Config) Resolver {
	return &httpResolver{
		log:     log.Named("geolocation"),
		baseURL: strings.TrimRight(cfg.GeolocationURL, "/"),
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (r *httpResolver) Resolve(ctx context.Context, ip string) (Location, error) {
	if r.baseURL == "" {
		return Location{}, errNoProvider
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", r.baseURL, ip), nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation lookup returned %d", resp.StatusCode)
	}

	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return Location{}, err
	}
	return loc, nil
}

type cachedResolver struct {
	next  Resolver
	cache cache.Cache[string, Location]
}

// NewCached wraps a resolver with a bounded cache. Cache content is
// never authoritative; a miss always falls through to the provider.
func NewCached(next Resolver, size int) Resolver {
	return &cachedResolver{
		next:  next,
		cache: cache.NewLRU[string, Location](size),
	}
}

func (r *cachedResolver) Resolve(ctx context.Context, ip string) (Location, error) {
	if loc, ok := r.cache.Get(ip); ok {
		return loc, nil
	}
	loc, err := r.next.Resolve(ctx, ip)
	if err != nil {
		return Location{}, err
	}
	r.cache.Set(ip, loc, time.Hour)
	return loc, nil
}
