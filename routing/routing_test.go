package routing

import (
	"context"
	"testing"

	"github.com/BaSui01/aigate/streaming"
	"github.com/BaSui01/aigate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	err   error
	text  string
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Completion(_ context.Context, _ *types.ChatRequest) (*types.ChatResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &types.ChatResponse{
		Model:   "m",
		Choices: []types.Choice{{Message: types.NewAssistantMessage(s.text)}},
	}, nil
}

func (s *stubProvider) Stream(_ context.Context, _ *types.ChatRequest) (<-chan types.StreamChunk, *streaming.CancelHandle, error) {
	s.calls++
	if s.err != nil {
		return nil, nil, s.err
	}
	ch := make(chan types.StreamChunk, 1)
	ch <- types.StreamChunk{Choices: []types.ChunkChoice{{Delta: types.Delta{Content: s.text}}}}
	close(ch)
	return ch, streaming.NewCancelHandle(), nil
}

func req() *types.ChatRequest {
	return types.NewChatRequest("m", []types.Message{types.NewUserMessage("hi")})
}

func TestFailoverAdvancesOnRetryableError(t *testing.T) {
	a := &stubProvider{name: "A", err: types.NewError(types.ErrNetwork, "down")}
	b := &stubProvider{name: "B", text: "ok"}

	var events []FailedCandidate
	f, err := NewFailover([]ChatProvider{a, b}, func(fc FailedCandidate) {
		events = append(events, fc)
	}, nil)
	require.NoError(t, err)

	resp, err := f.Completion(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.FirstText())

	// Exactly one structured event for the failed candidate.
	require.Len(t, events, 1)
	assert.Equal(t, "A", events[0].Provider)
	assert.Equal(t, types.ErrNetwork, events[0].ErrorCode)
	assert.True(t, events[0].Retryable)
}

func TestFailoverSurfacesNonRetryableImmediately(t *testing.T) {
	a := &stubProvider{name: "A", err: types.NewError(types.ErrAuthentication, "bad key")}
	b := &stubProvider{name: "B", text: "never"}

	f, err := NewFailover([]ChatProvider{a, b}, nil, nil)
	require.NoError(t, err)

	_, err = f.Completion(context.Background(), req())
	require.Error(t, err)
	assert.Equal(t, types.ErrAuthentication, types.GetErrorCode(err))
	assert.Zero(t, b.calls)
}

func TestFailoverExhaustionReturnsLastError(t *testing.T) {
	a := &stubProvider{name: "A", err: types.NewError(types.ErrNetwork, "a down")}
	b := &stubProvider{name: "B", err: types.NewError(types.ErrProvider, "b down")}

	f, err := NewFailover([]ChatProvider{a, b}, nil, nil)
	require.NoError(t, err)

	_, err = f.Completion(context.Background(), req())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b down")
}

func TestFailoverRequiresProviders(t *testing.T) {
	_, err := NewFailover(nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}

func TestFailoverStream(t *testing.T) {
	a := &stubProvider{name: "A", err: types.NewError(types.ErrTimeout, "slow")}
	b := &stubProvider{name: "B", text: "streamed"}

	f, err := NewFailover([]ChatProvider{a, b}, nil, nil)
	require.NoError(t, err)

	ch, handle, err := f.Stream(context.Background(), req())
	require.NoError(t, err)
	require.NotNil(t, handle)
	chunk := <-ch
	assert.Equal(t, "streamed", chunk.Choices[0].Delta.Content)
}

func TestRoundRobinRotation(t *testing.T) {
	a := &stubProvider{name: "A", text: "a"}
	b := &stubProvider{name: "B", text: "b"}
	c := &stubProvider{name: "C", text: "c"}

	rr, err := NewRoundRobin([]ChatProvider{a, b, c})
	require.NoError(t, err)

	var got []string
	for i := 0; i < 6; i++ {
		resp, err := rr.Completion(context.Background(), req())
		require.NoError(t, err)
		got = append(got, resp.FirstText())
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, got)
}

func TestRoundRobinFailuresPropagate(t *testing.T) {
	a := &stubProvider{name: "A", err: types.NewError(types.ErrNetwork, "down")}
	b := &stubProvider{name: "B", text: "b"}

	rr, err := NewRoundRobin([]ChatProvider{a, b})
	require.NoError(t, err)

	_, err = rr.Completion(context.Background(), req())
	require.Error(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Zero(t, b.calls)
}

func TestSingleDelegates(t *testing.T) {
	a := &stubProvider{name: "A", text: "solo"}
	s := NewSingle(a)
	resp, err := s.Completion(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, "solo", resp.FirstText())
	assert.Equal(t, "A", s.Name())
}
