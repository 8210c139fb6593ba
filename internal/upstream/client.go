package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/timada-org/hookrelay/internal/core"
)

var _ core.Upstream = &Client{}

var ErrUpstream = errors.New("upstream: request failed")

type subscribeRequest struct {
	NotifyURL string `json:"notifyUrl"`
}

type subscribeResponse struct {
	UnsubscribeLink string `mapstructure:"unsubscribeLink"`
}

type ClientOptions struct {
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	http    *http.Client
	timeout time.Duration
}

func New(options ClientOptions) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		http:    httpClient,
		timeout: options.Timeout,
	}
}

// Subscribe asks the event source at path to post events to notifyURL and
// returns the link that cancels the registration.
func (c *Client) Subscribe(ctx context.Context, path string, notifyURL string) (string, error) {
	body, err := json.Marshal(&subscribeRequest{NotifyURL: notifyURL})
	if err != nil {
		return "", err
	}

	payload, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", err
	}

	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return "", fmt.Errorf("%w: invalid subscribe response: %s", ErrUpstream, err)
	}

	var res subscribeResponse
	if err := mapstructure.Decode(data, &res); err != nil {
		return "", fmt.Errorf("%w: invalid subscribe response: %s", ErrUpstream, err)
	}

	if res.UnsubscribeLink == "" {
		return "", fmt.Errorf("%w: subscribe response has no unsubscribeLink", ErrUpstream)
	}

	return res.UnsubscribeLink, nil
}

func (c *Client) Unsubscribe(ctx context.Context, handle string) error {
	_, err := c.do(ctx, http.MethodDelete, handle, nil)
	return err
}

func (c *Client) do(ctx context.Context, method string, url string, body []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s returned %d", ErrUpstream, method, url, resp.StatusCode)
	}

	return payload, nil
}
