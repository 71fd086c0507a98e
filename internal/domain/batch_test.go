package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchTransition_HappyPath(t *testing.T) {
	for _, terminal := range []BatchStatus{BatchStatusCompleted, BatchStatusPartial, BatchStatusFailed} {
		b := &IngestBatch{Status: BatchStatusUploaded}
		assert.NoError(t, b.TransitionTo(BatchStatusProcessing))
		assert.NoError(t, b.TransitionTo(terminal))
		assert.Equal(t, terminal, b.Status)
	}
}

func TestBatchTransition_SkippingProcessingIsRejected(t *testing.T) {
	b := &IngestBatch{Status: BatchStatusUploaded}
	err := b.TransitionTo(BatchStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidBatchTransition)
	assert.Equal(t, BatchStatusUploaded, b.Status)
}

func TestBatchTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []BatchStatus{BatchStatusCompleted, BatchStatusPartial, BatchStatusFailed} {
		b := &IngestBatch{Status: terminal}
		assert.ErrorIs(t, b.TransitionTo(BatchStatusProcessing), ErrInvalidBatchTransition)
		assert.True(t, b.Status.Terminal())
	}
}

func TestBatchStatusTerminal(t *testing.T) {
	assert.False(t, BatchStatusUploaded.Terminal())
	assert.False(t, BatchStatusProcessing.Terminal())
	assert.True(t, BatchStatusCompleted.Terminal())
	assert.True(t, BatchStatusPartial.Terminal())
	assert.True(t, BatchStatusFailed.Terminal())
}
