package locationIQ

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
)

const (
	DefaultBaseURL = "https://us1.locationiq.com"
	DefaultTimeout = 5 * time.Second
)

var ErrLocationNotFound = errors.New("location not found")

// LocationIQClient resolves coordinates to human readable addresses.
type LocationIQClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func New(apiKey, baseURL string, timeout time.Duration) *LocationIQClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &LocationIQClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type AddressPayload struct {
	Address string `json:"display_name"`
}

// GetAddress reverse geocodes a point.
func (c *LocationIQClient) GetAddress(ctx context.Context, longitude, latitude float64) (string, error) {
	const op = "LocationIQClient.GetAddress"
	ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("%s: build request: %w", op, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("%s: failed to make request to LocationIQ: %w", op, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, ErrLocationNotFound))
	case resp.StatusCode != http.StatusOK:
		return "", wrap.Error(ctx, fmt.Errorf("%s: unexpected response status %d", op, resp.StatusCode))
	}

	var payload AddressPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("%s: failed to decode data from LocationIQ response: %w", op, err))
	}
	if payload.Address == "" {
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, ErrLocationNotFound))
	}

	return payload.Address, nil
}
