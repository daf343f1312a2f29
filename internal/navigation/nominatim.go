package navigation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nadzzz/drishti/internal/provider"
)

// searchRadius is the half-width, in degrees, of the preferred viewbox
// around the user.
const searchRadius = 0.1

// Nominatim is a geocoding client. The public instance requires an
// identifying User-Agent.
type Nominatim struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewNominatim creates a Nominatim client.
func NewNominatim(endpoint, userAgent string) *Nominatim {
	return &Nominatim{
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Search returns the best match for query.
func (n *Nominatim) Search(ctx context.Context, query string, near *Point) (Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	if near != nil {
		// left,top,right,bottom; results outside are still allowed.
		q.Set("viewbox", fmt.Sprintf("%f,%f,%f,%f",
			near.Lon-searchRadius, near.Lat+searchRadius, near.Lon+searchRadius, near.Lat-searchRadius))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"/search?"+q.Encode(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if err := provider.CheckResponse(resp, "nominatim search"); err != nil {
		return Place{}, err
	}

	var results []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Place{}, fmt.Errorf("decoding nominatim response: %w", err)
	}
	if len(results) == 0 {
		return Place{}, ErrPlaceNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parsing lat %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parsing lon %q: %w", results[0].Lon, err)
	}

	slog.Debug("geocoded destination", "query", query, "name", results[0].DisplayName)
	return Place{Name: results[0].DisplayName, Point: Point{Lat: lat, Lon: lon}}, nil
}
