package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	loggerCfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/domain"
	"passindexer/internal/service"
)

type MockEventProcessor struct {
	mock.Mock
}

func (m *MockEventProcessor) ProcessEvent(ctx context.Context, env *domain.Envelope) (*service.Outcome, error) {
	args := m.Called(ctx, env)
	out, _ := args.Get(0).(*service.Outcome)
	return out, args.Error(1)
}

func testLogger() logger.Logger {
	return logger.New(loggerCfg.LoggerCfg{Level: "error", Format: "json"})
}

func envAt(block uint64, logIndex uint32) *domain.Envelope {
	return &domain.Envelope{
		Type:      domain.EventMint,
		EventMeta: domain.EventMeta{ChainID: 1, BlockNumber: block, TxHash: "0xaa", LogIndex: logIndex},
	}
}

func TestNewProcessor_Validation(t *testing.T) {
	_, err := NewProcessor(testLogger(), nil, &MockEventProcessor{}, nil)
	assert.EqualError(t, err, "sequencer is required to the processor")

	_, err = NewProcessor(testLogger(), NewSequencer(nil), nil, nil)
	assert.EqualError(t, err, "event handler is required to the processor")
}

func TestProcessor_AppliesAndCheckpoints(t *testing.T) {
	ctx := context.Background()
	cp := newMemCheckpoints()
	h := &MockEventProcessor{}
	h.On("ProcessEvent", mock.Anything, mock.Anything).Return(&service.Outcome{}, nil)

	p, err := NewProcessor(testLogger(), NewSequencer(cp), h, nil)
	require.NoError(t, err)

	require.NoError(t, p.Handle(ctx, envAt(10, 0)))
	require.NoError(t, p.Handle(ctx, envAt(10, 1)))

	h.AssertNumberOfCalls(t, "ProcessEvent", 2)
	assert.Equal(t, Position{10, 1}, cp.marks[1])
}

func TestProcessor_SkipsReplays(t *testing.T) {
	ctx := context.Background()
	cp := newMemCheckpoints()
	cp.marks[1] = Position{10, 1}
	h := &MockEventProcessor{}
	h.On("ProcessEvent", mock.Anything, mock.Anything).Return(&service.Outcome{}, nil)

	p, err := NewProcessor(testLogger(), NewSequencer(cp), h, nil)
	require.NoError(t, err)

	require.NoError(t, p.Handle(ctx, envAt(9, 5)))
	require.NoError(t, p.Handle(ctx, envAt(10, 1)))
	h.AssertNotCalled(t, "ProcessEvent", mock.Anything, mock.Anything)

	require.NoError(t, p.Handle(ctx, envAt(11, 0)))
	h.AssertNumberOfCalls(t, "ProcessEvent", 1)
}

func TestProcessor_HandlerErrorKeepsMark(t *testing.T) {
	ctx := context.Background()
	cp := newMemCheckpoints()
	h := &MockEventProcessor{}
	h.On("ProcessEvent", mock.Anything, mock.Anything).Return(nil, errors.New("store down"))

	seq := NewSequencer(cp)
	p, err := NewProcessor(testLogger(), seq, h, nil)
	require.NoError(t, err)

	err = p.Handle(ctx, envAt(10, 0))
	require.ErrorContains(t, err, "store down")

	_, ok := seq.Mark(1)
	assert.False(t, ok)
	assert.Empty(t, cp.marks)
}

func TestProcessor_NilEnvelope(t *testing.T) {
	p, err := NewProcessor(testLogger(), NewSequencer(nil), &MockEventProcessor{}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, p.Handle(context.Background(), nil), domain.ErrInvalidEvent)
}
