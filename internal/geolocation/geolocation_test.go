package geolocation

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/passage/internal/config"
)

func TestLocationName(t *testing.T) {
	assert.Equal(t, "Unknown location", Location{}.Name())
	assert.Equal(t, "Shanghai, SH, CN", Location{City: "Shanghai", Region: "SH", CountryCode: "CN"}.Name())
	assert.Equal(t, "CN", Location{CountryCode: "CN"}.Name())
}

func TestHTTPResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.7", r.URL.Path)
		w.Write([]byte(`{"city":"Berlin","region":"BE","timezone":"Europe/Berlin","countryCode":"DE"}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(zap.NewNop(), config.Config{GeolocationURL: srv.URL})
	loc, err := r.Resolve(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "Berlin", loc.City)
	assert.Equal(t, "DE", loc.CountryCode)
}

func TestHTTPResolverNoProvider(t *testing.T) {
	r := NewHTTPResolver(zap.NewNop(), config.Config{})
	_, err := r.Resolve(context.Background(), "203.0.113.7")
	assert.Error(t, err)
}

type countingResolver struct {
	calls int
	err   error
}

func (c *countingResolver) Resolve(ctx context.Context, ip string) (Location, error) {
	c.calls++
	if c.err != nil {
		return Location{}, c.err
	}
	return Location{City: "Oslo"}, nil
}

func TestCachedResolverHitsProviderOnce(t *testing.T) {
	inner := &countingResolver{}
	r := NewCached(inner, 8)

	for i := 0; i < 3; i++ {
		loc, err := r.Resolve(context.Background(), "203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, "Oslo", loc.City)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachedResolverDoesNotCacheFailures(t *testing.T) {
	inner := &countingResolver{err: errors.New("lookup down")}
	r := NewCached(inner, 8)

	_, err := r.Resolve(context.Background(), "203.0.113.7")
	assert.Error(t, err)
	_, err = r.Resolve(context.Background(), "203.0.113.7")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
