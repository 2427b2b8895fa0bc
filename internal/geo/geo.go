// Package geo resolves request IPs to a coarse location through the
// ipwho.is HTTP API. Lookups are best-effort: any failure degrades to an
// Unknown observation instead of an error, because analytics must never
// block a redirect.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const unknown = "Unknown"

// Observation is the transient geo result for one request.
type Observation struct {
	Country string
	City    string
}

// Unknown is the degraded observation used when the lookup fails.
var Unknown = Observation{Country: unknown, City: unknown}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a lookup client. timeout bounds the whole call,
// consistent with the rest of the system's external-call budget.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type lookupResponse struct {
	Success bool   `json:"success"`
	Country string `json:"country"`
	City    string `json:"city"`
	Message string `json:"message"`
}

// Lookup resolves ip to a country and city. It never fails; every error
// path returns Unknown.
func (c *Client) Lookup(ctx context.Context, ip string) Observation {
	if ip == "" {
		return Unknown
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, ip), nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("failed to build geo lookup request")
		return Unknown
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("geo lookup failed")
		return Unknown
	}
	defer resp.Body.Close()

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("failed to decode geo lookup response")
		return Unknown
	}

	if !body.Success {
		log.Debug().Str("ip", ip).Str("message", body.Message).Msg("geo lookup unsuccessful")
		return Unknown
	}

	obs := Observation{Country: body.Country, City: body.City}
	if obs.Country == "" {
		obs.Country = unknown
	}
	if obs.City == "" {
		obs.City = unknown
	}
	return obs
}
