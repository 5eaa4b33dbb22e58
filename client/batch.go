package client

import (
	"context"

	"github.com/BaSui01/aigate/types"
	"golang.org/x/sync/errgroup"
)

// BatchResult pairs one batch entry with its outcome. Result i always
// corresponds to input i, regardless of completion order.
type BatchResult struct {
	Response *types.ChatResponse
	Err      error
}

// ChatBatch fans out the requests with at most concurrency in flight.
// Per-request failures are captured in the result slice; they never abort
// the batch. concurrency <= 0 means no extra cap beyond the client's
// backpressure bound.
func (c *Client) ChatBatch(ctx context.Context, reqs []*types.ChatRequest, concurrency int) []BatchResult {
	results := make([]BatchResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, req := range reqs {
		g.Go(func() error {
			resp, err := c.Chat(gctx, req)
			results[i] = BatchResult{Response: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ChatBatchSmart picks the concurrency automatically: sequential for small
// batches, ten-wide for larger ones.
func (c *Client) ChatBatchSmart(ctx context.Context, reqs []*types.ChatRequest) []BatchResult {
	concurrency := 10
	if len(reqs) <= 3 {
		concurrency = 1
	}
	return c.ChatBatch(ctx, reqs, concurrency)
}
