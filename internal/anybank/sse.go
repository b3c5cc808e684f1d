package anybank

import (
	"context"
	"errors"
	"net/http"
	"os"
)

// StreamProbe is the outcome of poking an event-stream endpoint. A
// working stream holds the connection open, so hitting the timeout
// before the server closes is the healthy case, not a failure.
type StreamProbe struct {
	Status      int
	ContentType string
	TimedOut    bool
}

// ProbeStream connects to an SSE endpoint, inspects status and content
// type, and closes without consuming the stream.
func (c *Client) ProbeStream(ctx context.Context, url string) (StreamProbe, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	hdr := http.Header{}
	hdr.Set("Accept", "text/event-stream")

	resp, err := c.sess.Open(ctx, url, hdr)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
			return StreamProbe{TimedOut: true}, nil
		}
		return StreamProbe{}, err
	}
	defer resp.Body.Close()

	return StreamProbe{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
