package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cinegraph/model"
)

func TestImportance(t *testing.T) {
	tests := []struct {
		name string
		ex   Exchange
		want float64
	}{
		{
			name: "plain chat",
			ex:   Exchange{UserText: "hello there"},
			want: 0.3,
		},
		{
			name: "tool use",
			ex:   Exchange{UserText: "what year is Inception from?", UsedTools: true},
			want: 0.5,
		},
		{
			name: "grounded with stated preference",
			ex:   Exchange{UserText: "I love slow sci-fi", Grounded: true},
			want: 0.6,
		},
		{
			name: "everything",
			ex:   Exchange{UserText: "my favorite is Interstellar", UsedTools: true, Grounded: true},
			want: 0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Importance(tt.ex), 1e-9)
		})
	}
}

func TestLongTermMemory_RecordBelowThresholdDropped(t *testing.T) {
	ltm, err := NewLongTermMemory(model.NewMockEmbedder())
	require.NoError(t, err)

	_, stored, err := ltm.Record(context.Background(), Exchange{
		SessionID: "s1",
		UserText:  "hello",
		AgentText: "hi, ask me about movies",
	})
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestLongTermMemory_RecordAndRecall(t *testing.T) {
	ltm, err := NewLongTermMemory(model.NewMockEmbedder())
	require.NoError(t, err)
	ctx := context.Background()

	mem, stored, err := ltm.Record(ctx, Exchange{
		SessionID: "s1",
		UserText:  "I love space exploration movies",
		AgentText: "Noted, you enjoy space exploration films like Interstellar.",
		Grounded:  true,
	})
	require.NoError(t, err)
	require.True(t, stored)
	assert.NotEmpty(t, mem.ID)

	recalled, err := ltm.Search(ctx, "space exploration movies", 3)
	require.NoError(t, err)
	require.Len(t, recalled, 1)
	assert.Equal(t, "s1", recalled[0].SessionID)
	assert.Contains(t, recalled[0].Text, "space exploration")
}

func TestLongTermMemory_SearchEmptyBankIsEmpty(t *testing.T) {
	ltm, err := NewLongTermMemory(model.NewMockEmbedder())
	require.NoError(t, err)

	recalled, err := ltm.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, recalled)
}
