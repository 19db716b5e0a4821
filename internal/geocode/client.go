package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"delivery-console/internal/geo"
)

const (
	defaultTimeout = 5 * time.Second
	searchLimit    = 5
)

// Place is one forward-geocoding match.
type Place struct {
	DisplayName string         `json:"display_name"`
	Coordinate  geo.Coordinate `json:"coordinate"`
}

// AddressParts is a reverse-geocoded address split into components.
type AddressParts struct {
	Locality string `json:"locality"`
	Street   string `json:"street"`
	House    string `json:"house"`
}

// DisplayText joins the parts into the console's single-line address form,
// "Street House, Locality". Missing parts are skipped.
func (p AddressParts) DisplayText() string {
	s := p.Street
	if p.House != "" {
		s = strings.TrimSpace(s + " " + p.House)
	}
	if p.Locality != "" {
		if s == "" {
			return p.Locality
		}
		s += ", " + p.Locality
	}
	return s
}

// Client talks to a Nominatim-style geocoding service. It is constructed
// explicitly and injected; the one-time service probe is memoized so that
// concurrent callers share a single in-flight initialization instead of
// re-triggering it. A failed probe is memoized as well, matching the
// once-per-process lifecycle of the underlying service handle.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *zap.Logger
	timeout time.Duration

	initOnce sync.Once
	initErr  error
}

// NewClient creates a geocoding client for the given base URL.
func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{},
		log:     log,
		timeout: defaultTimeout,
	}
}

// ensureReady performs the memoized one-time service probe.
func (c *Client) ensureReady(ctx context.Context) error {
	c.initOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
		if err != nil {
			c.initErr = err
			return
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			c.initErr = fmt.Errorf("geocoder probe: %w", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			c.initErr = fmt.Errorf("geocoder probe: status %d", resp.StatusCode)
			return
		}
		c.log.Info("geocoder ready", zap.String("base_url", c.baseURL))
	})
	return c.initErr
}

// Search forward-geocodes a free-text query, best matches first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = searchLimit
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", strconv.Itoa(limit))

	var raw []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := c.getJSON(ctx, "/search?"+q.Encode(), &raw); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(raw))
	for _, m := range raw {
		lat, err1 := strconv.ParseFloat(m.Lat, 64)
		lng, err2 := strconv.ParseFloat(m.Lon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		places = append(places, Place{
			DisplayName: m.DisplayName,
			Coordinate:  geo.Coordinate{Lat: lat, Lng: lng},
		})
	}
	return places, nil
}

// Reverse resolves a coordinate back into address components.
func (c *Client) Reverse(ctx context.Context, coord geo.Coordinate) (AddressParts, error) {
	if err := c.ensureReady(ctx); err != nil {
		return AddressParts{}, err
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lng, 'f', -1, 64))
	q.Set("format", "jsonv2")

	var raw struct {
		Address struct {
			City        string `json:"city"`
			Town        string `json:"town"`
			Village     string `json:"village"`
			Road        string `json:"road"`
			Suburb      string `json:"suburb"`
			HouseNumber string `json:"house_number"`
		} `json:"address"`
	}
	if err := c.getJSON(ctx, "/reverse?"+q.Encode(), &raw); err != nil {
		return AddressParts{}, err
	}

	parts := AddressParts{
		Locality: raw.Address.City,
		Street:   raw.Address.Road,
		House:    raw.Address.HouseNumber,
	}
	if parts.Locality == "" {
		parts.Locality = raw.Address.Town
	}
	if parts.Locality == "" {
		parts.Locality = raw.Address.Village
	}
	if parts.Street == "" {
		parts.Street = raw.Address.Suburb
	}
	return parts, nil
}

// getJSON issues a GET with a per-attempt timeout and a single retry on
// transport errors or 5xx responses.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = c.doGetJSON(ctx, path, out)
		if lastErr == nil {
			return nil
		}
		c.log.Warn("geocode request failed",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}
	return lastErr
}

func (c *Client) doGetJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("geocoder: decode response: %w", err)
	}
	return nil
}
