// Package analytics implements the fire-and-forget event side channel:
// device descriptors, best-effort IP geolocation, and asynchronous event
// publication. Nothing in here is on the critical path and no failure in
// here is ever surfaced to a user.
package analytics

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/jghoshh/trailhead/backend/queue"
	storage "github.com/jghoshh/trailhead/backend/storage/cache"
	"github.com/jghoshh/trailhead/models"
)

// Version tags the user agent reported in device info.
const Version = "0.1.0"

// locationTTL is how long a resolved geolocation stays cached. The lookup
// service is rate limited and a session's IP rarely changes.
const locationTTL = 12 * time.Hour

const locationCacheKey = "geoip_self"

// Emitter gathers device and location metadata and publishes analytics
// events onto the queue. Track is asynchronous; callers never wait on it.
type Emitter struct {
	queue      *queue.Queue
	cache      storage.CacheInterface
	httpClient *http.Client
	lookupURL  string
	token      string
	device     models.DeviceInfo
}

// NewEmitter builds an emitter. The cache may be nil, in which case every
// Track resolves the location over the network again.
func NewEmitter(q *queue.Queue, c storage.CacheInterface, lookupURL, token string) *Emitter {
	return &Emitter{
		queue:      q,
		cache:      c,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		lookupURL:  lookupURL,
		token:      token,
		device:     CollectDeviceInfo(),
	}
}

// CollectDeviceInfo gathers the static descriptors of this session's
// environment, the closest terminal equivalents of a browser's user agent,
// platform, screen resolution, timezone and locale.
func CollectDeviceInfo() models.DeviceInfo {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	resolution := "unknown"
	if cols, lines := os.Getenv("COLUMNS"), os.Getenv("LINES"); cols != "" && lines != "" {
		resolution = cols + "x" + lines
	}

	zone, _ := time.Now().Zone()

	language := os.Getenv("LANG")
	if language == "" {
		language = "unknown"
	}

	return models.DeviceInfo{
		UserAgent:        fmt.Sprintf("trailhead/%s (%s; %s)", Version, runtime.Version(), host),
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		ScreenResolution: resolution,
		Timezone:         zone,
		Language:         language,
	}
}

// Device returns the device info snapshot gathered at construction.
func (e *Emitter) Device() models.DeviceInfo {
	return e.device
}

// lookupResponse is the subset of the geolocation service's response this
// system consumes. Loc is a "lat,lon" pair.
type lookupResponse struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
	Loc     string `json:"loc"`
}

// Location resolves a coarse geolocation for this session's IP, consulting
// the cache first. Any failure yields nil; location is always optional.
func (e *Emitter) Location(ctx context.Context) *models.Location {
	if e.lookupURL == "" {
		return nil
	}

	if loc := e.cachedLocation(ctx); loc != nil {
		return loc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.lookupURL, nil)
	if err != nil {
		log.Printf("building location request: %v", err)
		return nil
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		log.Printf("could not fetch location data: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("location lookup returned status %d", resp.StatusCode)
		return nil
	}

	var data lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Printf("decoding location response: %v", err)
		return nil
	}

	loc := &models.Location{
		Country: data.Country,
		Region:  data.Region,
		City:    data.City,
	}
	if pair := strings.SplitN(data.Loc, ",", 2); len(pair) == 2 {
		loc.Latitude = pair[0]
		loc.Longitude = pair[1]
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, locationCacheKey, loc, locationTTL); err != nil {
			log.Printf("caching location: %v", err)
		}
	}
	return loc
}

func (e *Emitter) cachedLocation(ctx context.Context) *models.Location {
	if e.cache == nil {
		return nil
	}
	value, err := e.cache.Get(ctx, locationCacheKey)
	if err != nil || value == nil {
		return nil
	}
	// The cache stores JSON; round-trip back into the struct.
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	loc := &models.Location{}
	if err := json.Unmarshal(raw, loc); err != nil {
		return nil
	}
	return loc
}

// Track publishes one analytics event describing what happened. It returns
// immediately; resolution and publication run in the background and their
// outcome is only ever logged.
func (e *Emitter) Track(userID string, eventType models.EventType, data map[string]interface{}) {
	if userID == "" || e.queue == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		event := &models.AnalyticsEvent{
			ID:         newEventID(),
			UserID:     userID,
			EventType:  eventType,
			EventData:  data,
			Timestamp:  time.Now().UTC(),
			DeviceInfo: e.device,
			Location:   e.Location(ctx),
		}
		if err := queue.ProcessEvent(event, e.queue); err != nil {
			log.Printf("error tracking event %s: %v", eventType, err)
		}
	}()
}

// newEventID returns a random identifier used for queue-level dedupe.
func newEventID() string {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("ev-%d", time.Now().UnixNano())
	}
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b))
}
