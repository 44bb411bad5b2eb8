// Package geocode talks to a Nominatim-compatible place-search and
// reverse-geocoding endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	userAgent   = "TravelPlannerApp"
	searchLimit = 8
)

// Place is one search or reverse-geocoding result.
type Place struct {
	Name        string
	DisplayName string
	Latitude    float64
	Longitude   float64
}

// Client queries a Nominatim-compatible server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a geocoding client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// nominatimResult is the wire shape of one result row.
type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	NameDetails struct {
		Name string `json:"name"`
	} `json:"namedetails"`
}

func (r nominatimResult) toPlace() Place {
	lat, _ := strconv.ParseFloat(r.Lat, 64)
	lon, _ := strconv.ParseFloat(r.Lon, 64)

	// Prefer the proper place name, fall back to the first segment of
	// the full display name.
	name := r.NameDetails.Name
	if name == "" {
		name = strings.SplitN(r.DisplayName, ",", 2)[0]
	}
	return Place{
		Name:        strings.TrimSpace(name),
		DisplayName: r.DisplayName,
		Latitude:    lat,
		Longitude:   lon,
	}
}

// Search looks up places matching a free-text query. Queries shorter
// than MinQueryLength issue no request and return no predictions.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&addressdetails=1&namedetails=1&limit=%d",
		c.baseURL, url.QueryEscape(query), searchLimit)

	var results []nominatimResult
	if err := c.get(ctx, endpoint, &results); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(results))
	for _, r := range results {
		places = append(places, r.toPlace())
	}
	return places, nil
}

// Reverse resolves coordinates to a place, used to suggest a name for
// a freshly picked map point.
func (c *Client) Reverse(ctx context.Context, latitude, longitude float64) (Place, error) {
	endpoint := fmt.Sprintf("%s/reverse?lat=%g&lon=%g&format=json&addressdetails=1&namedetails=1",
		c.baseURL, latitude, longitude)

	var result nominatimResult
	if err := c.get(ctx, endpoint, &result); err != nil {
		return Place{}, err
	}
	return result.toPlace(), nil
}

// SuggestName reverse-geocodes a coordinate into a short place name
// for prefilling forms. Lookup failures degrade to an empty
// suggestion; they never block the save that asked for it.
func (c *Client) SuggestName(ctx context.Context, latitude, longitude float64) string {
	place, err := c.Reverse(ctx, latitude, longitude)
	if err != nil {
		log.Printf("Reverse geocode of %g,%g failed: %v", latitude, longitude, err)
		return ""
	}
	return place.Name
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoding error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
