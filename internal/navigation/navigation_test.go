package navigation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const routeBody = `{
  "code": "Ok",
  "routes": [{
    "distance": 1234, "duration": 900,
    "legs": [{"steps": [
      {"distance": 200, "name": "MG Road", "maneuver": {"type": "depart"}},
      {"distance": 1034, "name": "Station Road", "maneuver": {"type": "turn", "modifier": "left"}},
      {"distance": 0, "name": "", "maneuver": {"type": "arrive"}}
    ]}]
  }]
}`

func osmServer(t *testing.T) (*httptest.Server, *string, *string) {
	t.Helper()
	var userAgent, routePath string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		if r.URL.Query().Get("q") == "nowhere" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		if r.URL.Query().Get("viewbox") == "" {
			t.Errorf("search without a viewbox")
		}
		_, _ = w.Write([]byte(`[{"display_name":"Bengaluru City Railway Station, Gubbi Thotadappa Road, Bengaluru","lat":"12.9780","lon":"77.5700"}]`))
	})
	mux.HandleFunc("GET /route/v1/", func(w http.ResponseWriter, r *http.Request) {
		routePath = r.URL.Path
		if r.URL.Query().Get("steps") != "true" {
			t.Errorf("route without steps")
		}
		_, _ = w.Write([]byte(routeBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &userAgent, &routePath
}

// TestDirections verifies geocoding, routing and the spoken summary.
func TestDirections(t *testing.T) {
	srv, userAgent, routePath := osmServer(t)
	nav := &Navigator{
		Geocoder: NewNominatim(srv.URL, "drishti-test/1.0"),
		Router:   NewOSRM(srv.URL, "foot"),
	}

	route, err := nav.Directions(context.Background(), Point{Lat: 12.97, Lon: 77.59}, "railway station")
	if err != nil {
		t.Fatalf("Directions() error = %v", err)
	}

	if *userAgent != "drishti-test/1.0" {
		t.Fatalf("User-Agent = %q", *userAgent)
	}
	if !strings.HasPrefix(*routePath, "/route/v1/foot/77.590000,12.970000;77.570000,12.978000") {
		t.Fatalf("route path = %q", *routePath)
	}
	if len(route.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(route.Steps))
	}

	want := "Bengaluru City Railway Station is 1.2 kilometres away, about 15 minutes on foot. " +
		"Start on MG Road for 200 metres. Turn left onto Station Road for 1.0 kilometres."
	if got := route.Spoken(2); got != want {
		t.Fatalf("Spoken() =\n%q\nwant\n%q", got, want)
	}
	if got := route.Steps[2].Instruction; got != "You have arrived." {
		t.Fatalf("arrive instruction = %q", got)
	}
}

func TestDirectionsPlaceNotFound(t *testing.T) {
	srv, _, _ := osmServer(t)
	nav := &Navigator{Geocoder: NewNominatim(srv.URL, "ua"), Router: NewOSRM(srv.URL, "")}

	_, err := nav.Directions(context.Background(), Point{}, "nowhere")
	if !errors.Is(err, ErrPlaceNotFound) {
		t.Fatalf("Directions() error = %v, want ErrPlaceNotFound", err)
	}
	if _, err := nav.Directions(context.Background(), Point{}, "  "); !errors.Is(err, ErrPlaceNotFound) {
		t.Fatalf("Directions(blank) error = %v, want ErrPlaceNotFound", err)
	}
}

func TestRouteNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route"}`))
	}))
	defer srv.Close()

	_, err := NewOSRM(srv.URL, "foot").Route(context.Background(), Point{}, Point{Lat: 1, Lon: 1})
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("Route() error = %v, want ErrNoRoute", err)
	}
}

func TestDistanceAndMinutes(t *testing.T) {
	if got := distance(3); got != "10 metres" {
		t.Fatalf("distance(3) = %q", got)
	}
	if got := distance(456); got != "460 metres" {
		t.Fatalf("distance(456) = %q", got)
	}
	if got := minutes(30); got != "1 minute" {
		t.Fatalf("minutes(30) = %q", got)
	}
}
