package adapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/BaSui01/aigate/model"
	"github.com/BaSui01/aigate/streaming"
	"github.com/BaSui01/aigate/types"
	"go.uber.org/zap"
)

// Stream sends a streaming chat request. Chunks arrive on the returned
// channel in byte-arrival order; the channel closes after the terminal
// chunk. Cancelling the handle drops the HTTP body and emits a single
// terminal Cancelled error.
func (a *Adapter) Stream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, *streaming.CancelHandle, error) {
	streamReq := req.Clone()
	streamReq.Stream = true

	wireModel := streamReq.Model
	resp, err := a.openStream(ctx, streamReq, wireModel)
	if err != nil && model.LooksLikeInvalidModel(err) {
		if fallback, ok := a.resolver.FallbackAfterInvalid(a.providerID, wireModel); ok {
			a.logger.Warn("invalid model reported on stream, retrying with fallback",
				zap.String("requested_model", wireModel),
				zap.String("fallback_model", fallback),
			)
			resp, err = a.openStream(ctx, streamReq, fallback)
			if err != nil {
				return nil, nil, a.resolver.DecorateInvalidModel(a.providerID, wireModel, err)
			}
		} else {
			return nil, nil, a.resolver.DecorateInvalidModel(a.providerID, wireModel, err)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	handle := streaming.NewCancelHandle()
	handle.OnCancel(func() { resp.Body.Close() })

	ch := make(chan types.StreamChunk)
	go a.pump(resp.Body, ch, handle)
	return ch, handle, nil
}

func (a *Adapter) openStream(ctx context.Context, req *types.ChatRequest, wireModel string) (*http.Response, error) {
	body, err := a.engine.BuildBody(a.def, wireModel, req, a.modelOverrides(wireModel))
	if err != nil {
		return nil, err
	}
	return a.do(ctx, wireModel, body, true)
}

// pump reads the body, feeds the frame decoder, and forwards normalised
// chunks. It is the only goroutine touching the decoder.
func (a *Adapter) pump(body io.ReadCloser, ch chan<- types.StreamChunk, handle *streaming.CancelHandle) {
	defer close(ch)
	defer body.Close()

	dec := streaming.NewDecoder(a.def.Streaming)
	buf := make([]byte, 4096)

	emit := func(chunks []types.StreamChunk) bool {
		for _, chunk := range chunks {
			chunk.Provider = a.providerID
			select {
			case ch <- chunk:
			case <-handle.Done():
				return false
			}
		}
		return true
	}

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if !emit(dec.Feed(buf[:n])) {
				a.emitCancelled(ch)
				return
			}
			if dec.Done() {
				return
			}
		}
		if err != nil {
			if handle.Cancelled() {
				a.emitCancelled(ch)
				return
			}
			if err == io.EOF {
				emit(dec.Finish())
				return
			}
			a.logger.Warn("stream read failed", zap.Error(err))
			select {
			case ch <- types.StreamChunk{
				Provider: a.providerID,
				Err: types.NewError(types.ErrNetwork, "stream read failed").
					WithProvider(a.providerID).WithCause(err),
			}:
			case <-handle.Done():
			}
			return
		}
	}
}

// emitCancelled sends the single terminal Cancelled chunk. The consumer may
// have stopped reading after cancelling, so the send gives up after a grace
// period instead of leaking the goroutine.
func (a *Adapter) emitCancelled(ch chan<- types.StreamChunk) {
	timer := time.NewTimer(time.Second)
	defer timer.Stop()
	select {
	case ch <- types.StreamChunk{
		Provider: a.providerID,
		Err:      types.NewError(types.ErrCancelled, "stream cancelled").WithProvider(a.providerID),
	}:
	case <-timer.C:
	}
}
