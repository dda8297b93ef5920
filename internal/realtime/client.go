package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
)

// Client fetches live feed documents from the realtime endpoint. The
// endpoint serves GTFS-realtime FeedMessages in their protojson encoding,
// one document per feed name.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a feed client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// unmarshalOpts tolerates snapshots missing proto2 required fields and
// fields this tracker does not model.
var unmarshalOpts = protojson.UnmarshalOptions{
	DiscardUnknown: true,
	AllowPartial:   true,
}

// Fetch retrieves and decodes one full feed document.
func (c *Client) Fetch(ctx context.Context, feedName string) (*gtfsrt.FeedMessage, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, feedName)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", feedName, err)
	}

	feed := &gtfsrt.FeedMessage{}
	if err := unmarshalOpts.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("decode %s: %w", feedName, err)
	}
	return feed, nil
}
