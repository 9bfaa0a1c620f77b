package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

func (c *SDKClient) url(path string) string {
	return c.BaseURL + c.APIPrefix + path
}

// newRequest builds a request with an optional JSON body.
func (c *SDKClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// newFormRequest builds a form-encoded request.
func (c *SDKClient) newFormRequest(ctx context.Context, path string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into target when non-nil.
func (c *SDKClient) do(req *http.Request, target any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(resp, body)
	}
	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doAuth sends req with the session's access token, refreshing once when
// the service reports it expired.
func (s *Session) doAuth(ctx context.Context, build func() (*http.Request, error), target any) error {
	req, err := build()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken())

	err = s.client.do(req, target)
	if !HasCode(err, CodeTokenExpired) || s.RefreshToken() == "" {
		return err
	}

	if rerr := s.Refresh(ctx); rerr != nil {
		return fmt.Errorf("failed to refresh session: %w", rerr)
	}

	req, err = build()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken())
	return s.client.do(req, target)
}
