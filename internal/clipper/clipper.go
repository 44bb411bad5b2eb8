// Package clipper imports a point of interest into the wishlist from a
// web page URL, reading OpenGraph and geo meta tags.
package clipper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trip-planner/internal/wishlist"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoCoordinates is returned when a page carries no usable position
// tags; such a page cannot become a wishlist item.
var ErrNoCoordinates = errors.New("page has no coordinate meta tags")

// Clipper fetches pages and turns them into wishlist items.
type Clipper struct {
	wishlist   *wishlist.Store
	httpClient *http.Client
}

// NewClipper creates a new Clipper instance.
func NewClipper(store *wishlist.Store) *Clipper {
	return &Clipper{
		wishlist:   store,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ClipURL fetches the URL, extracts the place, and saves it to the
// wishlist.
func (c *Clipper) ClipURL(ctx context.Context, pageURL string) (wishlist.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return wishlist.Item{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "TravelPlannerApp")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wishlist.Item{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return wishlist.Item{}, fmt.Errorf("failed to fetch page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return wishlist.Item{}, fmt.Errorf("failed to parse page: %w", err)
	}

	place, err := extractPlace(doc)
	if err != nil {
		return wishlist.Item{}, err
	}

	item, err := c.wishlist.Add(place.name, place.details, place.latitude, place.longitude)
	if err != nil {
		return wishlist.Item{}, fmt.Errorf("failed to save clipped place: %w", err)
	}
	return item, nil
}

type clippedPlace struct {
	name      string
	details   string
	latitude  float64
	longitude float64
}

func extractPlace(doc *goquery.Document) (clippedPlace, error) {
	var place clippedPlace

	place.name = metaContent(doc, "og:title")
	if place.name == "" {
		place.name = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if place.name == "" {
		return clippedPlace{}, errors.New("page has no title")
	}

	place.details = metaContent(doc, "og:description")
	if place.details == "" {
		place.details = metaContent(doc, "description")
	}

	lat, lon, ok := pageCoordinates(doc)
	if !ok {
		return clippedPlace{}, ErrNoCoordinates
	}
	place.latitude = lat
	place.longitude = lon
	return place, nil
}

func metaContent(doc *goquery.Document, name string) string {
	sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name)
	content, _ := doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(content)
}

// pageCoordinates tries the common position tags in order:
// geo.position ("lat;lon"), ICBM ("lat, lon"), then the OpenGraph
// place pair.
func pageCoordinates(doc *goquery.Document) (float64, float64, bool) {
	if v := metaContent(doc, "geo.position"); v != "" {
		if lat, lon, ok := splitPair(v, ";"); ok {
			return lat, lon, true
		}
	}
	if v := metaContent(doc, "ICBM"); v != "" {
		if lat, lon, ok := splitPair(v, ","); ok {
			return lat, lon, true
		}
	}

	latStr := metaContent(doc, "place:location:latitude")
	lonStr := metaContent(doc, "place:location:longitude")
	if latStr != "" && lonStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		if errLat == nil && errLon == nil {
			return lat, lon, true
		}
	}
	return 0, 0, false
}

func splitPair(v, sep string) (float64, float64, bool) {
	parts := strings.SplitN(v, sep, 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
