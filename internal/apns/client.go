package apns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/cesargomez89/xcc-relay/internal/constants"
)

// Outcome is the interpreted result of one push attempt.
type Outcome struct {
	Delivered   bool
	RemoveToken bool
}

// removalReasons are the APNs rejection reasons that mean the device token
// is permanently invalid for this topic.
var removalReasons = map[string]bool{
	"BadDeviceToken":         true,
	"DeviceTokenNotForTopic": true,
	"Unregistered":           true,
}

// ClassifyOutcome maps an APNs response onto the token-invalidation policy.
// Pure function so the policy is testable without a network stub: 200 is
// delivered; 410 or a removal reason reaps the subscription; everything else
// (throttling, transient provider errors) is dropped with no retry.
func ClassifyOutcome(statusCode int, reason string) Outcome {
	if statusCode == http.StatusOK {
		return Outcome{Delivered: true}
	}
	return Outcome{
		RemoveToken: statusCode == http.StatusGone || removalReasons[reason],
	}
}

// Client posts background notifications to the push gateway.
type Client struct {
	host       string
	tokens     *TokenSource
	httpClient *http.Client
}

// NewClient builds a push client from provider credentials. A nil httpClient
// gets a default with HTTP/2 enabled (APNs speaks HTTP/2 only) and the
// per-call timeout.
func NewClient(creds *Credentials, httpClient *http.Client) (*Client, error) {
	tokens, err := NewTokenSource(creds)
	if err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: constants.PushTimeout,
			Transport: &http.Transport{
				ForceAttemptHTTP2:   true,
				MaxIdleConnsPerHost: 10,
			},
		}
	}

	return &Client{
		host:       creds.Host,
		tokens:     tokens,
		httpClient: httpClient,
	}, nil
}

type errorResponse struct {
	Reason string `json:"reason"`
}

// Push delivers one silent notification to a device. The returned Outcome is
// meaningful even on non-200 responses; an error is returned only when the
// request never produced a response.
func (c *Client) Push(ctx context.Context, topic, deviceToken string, payload []byte) (Outcome, error) {
	endpoint := c.host + "/3/device/" + url.PathEscape(deviceToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build push request: %w", err)
	}

	bearer, err := c.tokens.Bearer()
	if err != nil {
		return Outcome{}, err
	}

	req.Header.Set("Authorization", "bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apns-topic", topic)
	req.Header.Set("apns-push-type", "background")
	req.Header.Set("apns-priority", "5")
	req.Header.Set("apns-expiration", "0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	var reason string
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil {
			reason = errResp.Reason
		}
	}

	return ClassifyOutcome(resp.StatusCode, reason), nil
}
