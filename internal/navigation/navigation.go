// Package navigation turns a spoken destination into walking directions
// using public OpenStreetMap services: Nominatim for geocoding and OSRM for
// routing. No routing is computed locally.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrPlaceNotFound is returned when geocoding yields no result.
	ErrPlaceNotFound = errors.New("place not found")

	// ErrNoRoute is returned when the router finds no path.
	ErrNoRoute = errors.New("no route found")
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Place is a geocoded destination.
type Place struct {
	Name string `json:"name"`
	Point
}

// Step is one spoken manoeuvre.
type Step struct {
	Instruction string  `json:"instruction"`
	Distance    float64 `json:"distance"` // metres until the next step
}

// Route is a computed path to a destination.
type Route struct {
	Destination Place   `json:"destination"`
	Distance    float64 `json:"distance"` // metres
	Duration    float64 `json:"duration"` // seconds
	Steps       []Step  `json:"steps"`
}

// Geocoder resolves free text to a place, preferring results near a point.
type Geocoder interface {
	Search(ctx context.Context, query string, near *Point) (Place, error)
}

// Router computes a route between two points.
type Router interface {
	Route(ctx context.Context, from, to Point) (*Route, error)
}

// Navigator composes geocoding and routing.
type Navigator struct {
	Geocoder Geocoder
	Router   Router
}

// Directions geocodes query and routes from the user's position to it.
func (n *Navigator) Directions(ctx context.Context, from Point, query string) (*Route, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrPlaceNotFound
	}

	place, err := n.Geocoder.Search(ctx, query, &from)
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", query, err)
	}

	route, err := n.Router.Route(ctx, from, place.Point)
	if err != nil {
		return nil, fmt.Errorf("routing to %q: %w", place.Name, err)
	}
	route.Destination = place
	return route, nil
}

// Spoken renders the route summary and up to maxSteps instructions as one
// utterance.
func (r *Route) Spoken(maxSteps int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is %s away, about %s on foot.", shortName(r.Destination.Name), distance(r.Distance), minutes(r.Duration))
	for i, s := range r.Steps {
		if i >= maxSteps {
			break
		}
		b.WriteString(" ")
		b.WriteString(s.Instruction)
	}
	return b.String()
}

// shortName keeps the first component of a Nominatim display name.
func shortName(display string) string {
	name, _, _ := strings.Cut(display, ",")
	name = strings.TrimSpace(name)
	if name == "" {
		return "Your destination"
	}
	return name
}

func distance(m float64) string {
	if m < 1000 {
		rounded := int(math.Round(m/10) * 10)
		if rounded < 10 {
			rounded = 10
		}
		return fmt.Sprintf("%d metres", rounded)
	}
	return fmt.Sprintf("%.1f kilometres", m/1000)
}

func minutes(s float64) string {
	n := int(math.Ceil(s / 60))
	if n <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}
