package model

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
)

// MockGenerator is a deterministic in-memory Generator for tests and local
// development. Canned completions are keyed on the last user message; a key
// also matches when the message merely ends with it, since prompts often
// prepend context above the user's words. When nothing matches, the reply
// echoes the full request so assertions can inspect what the prompt
// contained.
type MockGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []Request
	err       error
}

// NewMockGenerator constructs an empty MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{responses: make(map[string]string)}
}

// AddResponse registers a canned completion for a last-user-message key.
func (m *MockGenerator) AddResponse(lastUserMessage, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[lastUserMessage] = response
}

// Fail makes every subsequent Generate call return err.
func (m *MockGenerator) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of every request seen so far.
func (m *MockGenerator) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]Request, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	if m.err != nil {
		return "", m.err
	}

	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			lastUser = msg.Content
		}
	}
	if resp, ok := m.responses[lastUser]; ok {
		return resp, nil
	}
	keys := make([]string, 0, len(m.responses))
	for key := range m.responses {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.HasSuffix(lastUser, key) {
			return m.responses[key], nil
		}
	}

	var sb strings.Builder
	sb.WriteString("Mock reply to: ")
	sb.WriteString(lastUser)
	if req.Instructions != "" {
		sb.WriteString("\n[context] ")
		sb.WriteString(req.Instructions)
	}
	return sb.String(), nil
}

// Info implements Generator.
func (m *MockGenerator) Info() Info { return Info{Name: "mock-generator", Provider: "mock"} }

// MockEmbedder produces deterministic bag-of-words vectors: each token is
// hashed into a fixed-dimension bucket and the result is L2-normalized.
// Texts sharing tokens land near each other under cosine similarity, which
// is enough structure for retrieval tests without a real model.
type MockEmbedder struct {
	Dim int // vector dimension, defaults to 64
	err error
	mu  sync.Mutex
}

// NewMockEmbedder constructs a MockEmbedder with the default dimension.
func NewMockEmbedder() *MockEmbedder { return &MockEmbedder{Dim: 64} }

// Fail makes every subsequent Embed call return err.
func (m *MockEmbedder) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Embed implements Embedder.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	dim := m.Dim
	if dim <= 0 {
		dim = 64
	}
	vec := make([]float32, dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		if _, err := h.Write([]byte(strings.Trim(token, ".,!?\"'()"))); err != nil {
			return nil, fmt.Errorf("hash token: %w", err)
		}
		vec[h.Sum32()%uint32(dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}
