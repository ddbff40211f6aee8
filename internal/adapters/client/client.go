// Package client talks to a remote portfolio backend over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "vantage/internal/api"
	"vantage/internal/domain"
	"vantage/internal/ports"
)

// maxBody bounds how much of a response is read.
const maxBody = 8 << 20

type Client struct {
	base   string
	http   *http.Client
	header http.Header
}

var _ ports.Portfolio = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithBearer sends token on every request.
func WithBearer(token string) Option {
	return func(c *Client) { c.header.Set("Authorization", "Bearer "+token) }
}

// New creates a client for the backend rooted at base, e.g. "http://backend:9000/api".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// get performs one GET and decodes the {success, data, message} envelope.
// 401 and 403 map to api.ErrUnauthorized and api.ErrForbidden. A response
// without a recognisable envelope is a transport error. A non-2xx response
// carrying an envelope is reported as unsuccessful with its message.
func get[T any](ctx context.Context, c *Client, path string, q url.Values) (api.Response[T], error) {
	var zero api.Response[T]
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return zero, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return zero, api.ErrUnauthorized
	case http.StatusForbidden:
		return zero, api.ErrForbidden
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return zero, fmt.Errorf("GET %s: read body: %w", path, err)
	}
	ok2xx := resp.StatusCode >= 200 && resp.StatusCode < 300

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Success == nil {
		if !ok2xx {
			return zero, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
		return zero, fmt.Errorf("GET %s: response is not an envelope", path)
	}

	out := api.Response[T]{Success: *env.Success && ok2xx, Message: env.Message}
	if !out.Success {
		return out, nil
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &out.Data); err != nil {
			return zero, fmt.Errorf("GET %s: decode data: %w", path, err)
		}
	}
	return out, nil
}

func normalizeAll(cs []domain.Company) {
	for i := range cs {
		cs[i].Normalize()
	}
}

func (c *Client) Organizations(ctx context.Context) (api.Response[[]domain.Organization], error) {
	return get[[]domain.Organization](ctx, c, "/organizations", nil)
}

func (c *Client) PortfolioByOrg(ctx context.Context, orgID int64) (api.Response[[]api.PortfolioEntry], error) {
	resp, err := get[[]api.PortfolioEntry](ctx, c, "/portfolio", url.Values{"orgId": {strconv.FormatInt(orgID, 10)}})
	for i := range resp.Data {
		resp.Data[i].PortfolioCompany.Normalize()
		normalizeAll(resp.Data[i].AcquisitionTargets)
		normalizeAll(resp.Data[i].Buyers)
	}
	return resp, err
}

func (c *Client) CompanyWithTargets(ctx context.Context, companyID domain.CompanyID, companyName string) (api.Response[api.CompanyTargets], error) {
	q := url.Values{"companyId": {companyID.String()}}
	if companyName != "" {
		q.Set("companyName", companyName)
	}
	resp, err := get[api.CompanyTargets](ctx, c, "/portfolio", q)
	resp.Data.Normalize()
	return resp, err
}

func (c *Client) TargetSynergy(ctx context.Context, buyerID, targetID domain.CompanyID) (api.Response[api.TargetSynergy], error) {
	resp, err := get[api.TargetSynergy](ctx, c, "/portfolio/target", url.Values{
		"buyerCompanyId":  {buyerID.String()},
		"targetCompanyId": {targetID.String()},
	})
	if resp.Success {
		resp.Data.Normalize()
	}
	return resp, err
}
