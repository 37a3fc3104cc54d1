package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"arduino-radar.klederson.com/internal/config"
)

// ReadingJSON is the wire shape served by /api/radar.
type ReadingJSON struct {
	Distance float64  `json:"distance"`
	Angle    *float64 `json:"angle,omitempty"`
	Detected bool     `json:"detected"`
}

// ToReading converts the wire shape into a Reading.
func (j ReadingJSON) ToReading() Reading {
	r := Reading{Distance: j.Distance, Detected: j.Detected}
	if j.Angle != nil {
		r.Angle = *j.Angle
		r.HasAngle = true
	}
	return r
}

// ReadingToJSON converts a Reading into the wire shape.
func ReadingToJSON(r Reading) ReadingJSON {
	j := ReadingJSON{Distance: r.Distance, Detected: r.Detected}
	if r.HasAngle {
		a := r.Angle
		j.Angle = &a
	}
	return j
}

// HTTPProvider polls a JSON endpoint for the latest reading.
type HTTPProvider struct {
	url        string
	httpClient *http.Client
}

// NewHTTPProvider polls url. A non-positive timeout uses the default.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = config.HTTPRequestTimeout
	}
	return &HTTPProvider{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Connect validates the endpoint URL and reports its host as the port.
func (p *HTTPProvider) Connect(ctx context.Context) (string, error) {
	u, err := url.Parse(p.url)
	if err != nil {
		return "", fmt.Errorf("parse sensor url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("sensor url %q has no host", p.url)
	}
	return u.Host, nil
}

func (p *HTTPProvider) Disconnect() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) Poll(ctx context.Context) (Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Reading{}, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Reading{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("sensor http status: %d", resp.StatusCode)
	}

	var body ReadingJSON
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Reading{}, fmt.Errorf("decode sensor reading: %w", err)
	}
	return body.ToReading(), nil
}
