package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/logging"
	"github.com/hupe1980/cinegraph/model"
)

// Exchange is one completed user/agent exchange offered to long-term
// memory.
type Exchange struct {
	SessionID string
	UserText  string
	AgentText string
	// UsedTools is true when tool invocations contributed to the reply.
	UsedTools bool
	// Grounded is true when retrieved evidence backed the reply.
	Grounded bool
}

// Memory is one recalled long-term memory entry.
type Memory struct {
	ID         string
	SessionID  string
	Text       string
	Importance float64
	Score      float64
}

// LongTermOptions configure a LongTermMemory.
type LongTermOptions struct {
	// Path enables on-disk persistence when non-empty.
	Path string
	// Collection names the chromem collection, default "memories".
	Collection string
	// MinImportance is the recording threshold; exchanges scoring below it
	// are dropped.
	MinImportance float64
	Retry         core.RetryPolicy
	Logger        logging.Logger
}

// LongTermMemory stores important exchanges as embeddings so future turns
// in any session can recall them by similarity.
type LongTermMemory struct {
	mu       sync.RWMutex
	col      *chromem.Collection
	embedder model.Embedder
	min      float64
	retry    core.RetryPolicy
	logger   logging.Logger
}

// NewLongTermMemory creates a LongTermMemory over a fresh or persisted
// database.
func NewLongTermMemory(embedder model.Embedder, optFns ...func(o *LongTermOptions)) (*LongTermMemory, error) {
	opts := LongTermOptions{
		Collection:    "memories",
		MinImportance: 0.5,
		Retry:         core.DefaultRetryPolicy(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var db *chromem.DB
	if opts.Path != "" {
		var err error
		db, err = chromem.NewPersistentDB(opts.Path, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent memory at %s: %w", opts.Path, err)
		}
	} else {
		db = chromem.NewDB()
	}

	col, err := db.GetOrCreateCollection(opts.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", opts.Collection, err)
	}

	return &LongTermMemory{
		col:      col,
		embedder: embedder,
		min:      opts.MinImportance,
		retry:    opts.Retry,
		logger:   logging.OrNoOp(opts.Logger),
	}, nil
}

// Importance scores how worth remembering an exchange is. Tool use and
// evidence grounding each raise the score, as does an explicitly stated
// preference in the user's text.
func Importance(ex Exchange) float64 {
	score := 0.3
	if ex.UsedTools {
		score += 0.2
	}
	if ex.Grounded {
		score += 0.2
	}
	lower := strings.ToLower(ex.UserText)
	for _, kw := range []string{"love", "like", "favorite", "favourite", "prefer", "hate", "enjoy"} {
		if strings.Contains(lower, kw) {
			score += 0.1
			break
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Record scores the exchange and, if important enough, embeds and stores
// it. It returns the stored memory and true, or the zero Memory and false
// when the exchange was below the threshold.
func (m *LongTermMemory) Record(ctx context.Context, ex Exchange) (Memory, bool, error) {
	importance := Importance(ex)
	if importance < m.min {
		return Memory{}, false, nil
	}

	text := fmt.Sprintf("User: %s\nAssistant: %s", ex.UserText, ex.AgentText)

	var vec []float32
	err := m.retry.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = m.embedder.Embed(ctx, text)
		return embedErr
	})
	if err != nil {
		return Memory{}, false, fmt.Errorf("embed memory: %w", err)
	}

	mem := Memory{ID: core.NewID(), SessionID: ex.SessionID, Text: text, Importance: importance}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc := chromem.Document{
		ID:        mem.ID,
		Content:   text,
		Embedding: vec,
		Metadata: map[string]string{
			"session_id": ex.SessionID,
			"importance": strconv.FormatFloat(importance, 'f', 2, 64),
		},
	}
	if err := m.col.AddDocument(ctx, doc); err != nil {
		return Memory{}, false, fmt.Errorf("store memory: %w", err)
	}

	m.logger.Debug("memory.longterm.recorded", "session_id", ex.SessionID, "importance", importance)
	return mem, true, nil
}

// Search recalls up to k memories similar to the query. An empty memory
// bank yields an empty result; unlike the document index, having no
// memories yet is a normal state.
func (m *LongTermMemory) Search(ctx context.Context, query string, k int) ([]Memory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := m.col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	var vec []float32
	err := m.retry.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = m.embedder.Embed(ctx, query)
		return embedErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.logger.Warn("memory.longterm.embed.failed", "error", err.Error())
		return nil, nil
	}

	results, err := m.col.QueryEmbedding(ctx, vec, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}

	memories := make([]Memory, 0, len(results))
	for _, res := range results {
		importance, _ := strconv.ParseFloat(res.Metadata["importance"], 64)
		memories = append(memories, Memory{
			ID:         res.ID,
			SessionID:  res.Metadata["session_id"],
			Text:       res.Content,
			Importance: importance,
			Score:      float64(res.Similarity),
		})
	}
	return memories, nil
}
