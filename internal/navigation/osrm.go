package navigation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/drishti/internal/provider"
)

// OSRM is a routing client for the OSRM HTTP API.
type OSRM struct {
	endpoint string
	profile  string
	client   *http.Client
}

// NewOSRM creates an OSRM client. profile is e.g. "foot" or "driving".
func NewOSRM(endpoint, profile string) *OSRM {
	if profile == "" {
		profile = "foot"
	}
	return &OSRM{
		endpoint: strings.TrimRight(endpoint, "/"),
		profile:  profile,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Route requests a route with turn-by-turn steps.
func (o *OSRM) Route(ctx context.Context, from, to Point) (*Route, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?steps=true&overview=false",
		o.endpoint, o.profile, from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm request: %w", err)
	}
	defer resp.Body.Close()

	var result osrmResponse
	if resp.StatusCode == http.StatusBadRequest {
		// OSRM reports NoRoute and friends as 400 with a JSON code.
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Code != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoRoute, result.Code)
		}
		return nil, &provider.StatusError{Service: "osrm route", Status: resp.StatusCode}
	}
	if err := provider.CheckResponse(resp, "osrm route"); err != nil {
		return nil, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding osrm response: %w", err)
	}
	if result.Code != "Ok" || len(result.Routes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, result.Code)
	}

	best := result.Routes[0]
	route := &Route{Distance: best.Distance, Duration: best.Duration}
	for _, leg := range best.Legs {
		for _, s := range leg.Steps {
			route.Steps = append(route.Steps, Step{Instruction: s.instruction(), Distance: s.Distance})
		}
	}
	return route, nil
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Legs     []struct {
			Steps []osrmStep `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type osrmStep struct {
	Distance float64 `json:"distance"`
	Name     string  `json:"name"`
	Maneuver struct {
		Type     string `json:"type"`
		Modifier string `json:"modifier"`
	} `json:"maneuver"`
}

// instruction renders the manoeuvre that starts this step, followed by how
// far to walk.
func (s osrmStep) instruction() string {
	onto := ""
	if s.Name != "" {
		onto = " onto " + s.Name
	}
	mod := s.Maneuver.Modifier

	var text string
	switch s.Maneuver.Type {
	case "depart":
		if s.Name != "" {
			text = "Start on " + s.Name
		} else {
			text = "Start walking"
		}
	case "arrive":
		return "You have arrived."
	case "turn", "end of road":
		text = "Turn " + mod + onto
	case "fork":
		text = "Keep " + mod + onto
	case "roundabout", "rotary":
		text = "Enter the roundabout and exit" + onto
	case "continue", "new name":
		if s.Name != "" {
			text = "Continue on " + s.Name
		} else {
			text = "Continue straight"
		}
	default:
		if mod != "" {
			text = "Go " + mod + onto
		} else {
			text = "Continue" + onto
		}
	}
	if s.Distance >= 5 {
		text += " for " + distance(s.Distance)
	}
	return text + "."
}
