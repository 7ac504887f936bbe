package subsonic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// envelope is the root JSON object of every Subsonic response.
type envelope struct {
	Response json.RawMessage `json:"subsonic-response"`
}

// responseStatus holds the fields shared by every subsonic-response.
type responseStatus struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError represents the error object of a failed response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	apiStatusOK     = "ok"
	apiStatusFailed = "failed"

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 32 << 20
)

// endpointURL builds the full request URL for endpoint. Parameter values
// are encoded by url.Values; repeated keys (songId, songIdToAdd) survive.
func endpointURL(srv Server, creds Credentials, clientName, endpoint string, params url.Values) string {
	q := creds.Values(clientName)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return strings.TrimRight(srv.BaseURL, "/") + "/rest/" + endpoint + "?" + q.Encode()
}

// call makes one authenticated request to endpoint and decodes the
// subsonic-response into out (which may be nil for status-only calls).
//
// It does not retry. Failures are classified as ErrAuth, ErrTransport,
// ErrNotFound or ErrConflict (see errors.go).
func (c *Client) call(ctx context.Context, endpoint string, params url.Values, out any) error {
	srv, creds, err := c.Authenticate()
	if err != nil {
		return err
	}

	reqURL := endpointURL(srv, creds, c.clientName, endpoint, params)
	c.logDebugf("subsonic: calling %s", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("subsonic: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.clientName+"/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(endpoint, err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	_ = resp.Body.Close()
	if err != nil {
		return transportError(endpoint, fmt.Errorf("failed to read response: %w", err))
	}

	if err := checkHTTPStatus(endpoint, resp); err != nil {
		return err
	}

	return decodeResponse(endpoint, body, out)
}

// checkHTTPStatus maps non-200 responses onto the error taxonomy.
func checkHTTPStatus(endpoint string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusConflict:
		return &Error{HTTPStatus: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	default:
		return transportError(endpoint, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
}

// decodeResponse unwraps the subsonic-response envelope.
func decodeResponse(endpoint string, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return transportError(endpoint, fmt.Errorf("failed to parse response: %w", err))
	}
	if len(env.Response) == 0 {
		return transportError(endpoint, fmt.Errorf("response has no subsonic-response element"))
	}

	var status responseStatus
	if err := json.Unmarshal(env.Response, &status); err != nil {
		return transportError(endpoint, fmt.Errorf("failed to parse response status: %w", err))
	}

	switch status.Status {
	case apiStatusOK:
	case apiStatusFailed:
		if status.Error == nil {
			return &Error{Code: ErrCodeGeneric, Message: "request failed without error details"}
		}
		return &Error{Code: status.Error.Code, Message: status.Error.Message}
	default:
		return transportError(endpoint, fmt.Errorf("unknown response status %q", status.Status))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return transportError(endpoint, fmt.Errorf("failed to decode %s payload: %w", endpoint, err))
	}
	return nil
}
