package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectDeviceInfo(t *testing.T) {
	device := CollectDeviceInfo()
	assert.NotEmpty(t, device.UserAgent)
	assert.NotEmpty(t, device.Platform)
	assert.Contains(t, device.Platform, "/")
}

func TestLocationParsesLookupResponse(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"country":"DE","region":"Berlin","city":"Berlin","loc":"52.5200,13.4050"}`))
	}))
	defer server.Close()

	e := NewEmitter(nil, nil, server.URL, "secret-token")
	loc := e.Location(context.Background())

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.NotNil(t, loc)
	assert.Equal(t, "DE", loc.Country)
	assert.Equal(t, "Berlin", loc.City)
	assert.Equal(t, "52.5200", loc.Latitude)
	assert.Equal(t, "13.4050", loc.Longitude)
}

func TestLocationMissingLocPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"country":"DE"}`))
	}))
	defer server.Close()

	e := NewEmitter(nil, nil, server.URL, "")
	loc := e.Location(context.Background())

	assert.NotNil(t, loc)
	assert.Equal(t, "DE", loc.Country)
	assert.Empty(t, loc.Latitude)
	assert.Empty(t, loc.Longitude)
}

func TestLocationFailuresYieldNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	e := NewEmitter(nil, nil, server.URL, "")
	assert.Nil(t, e.Location(context.Background()))

	// No lookup endpoint configured at all.
	e = NewEmitter(nil, nil, "", "")
	assert.Nil(t, e.Location(context.Background()))
}

func TestTrackWithoutUserIsNoOp(t *testing.T) {
	e := NewEmitter(nil, nil, "", "")
	// Must not panic or block with no queue and no user.
	e.Track("", "task_completed", nil)
	e.Track("u1", "task_completed", nil)
}
