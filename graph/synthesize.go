package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/cinegraph/model"
)

const defaultInstructions = `You are a friendly, knowledgeable movie-recommendation assistant.
Answer using only the conversation, the remembered context, the tool results and the evidence provided.
If the evidence does not cover the question, say so instead of inventing facts.`

// synthesize composes the user-visible reply from everything the turn
// gathered.
func (g *Graph) synthesize(ctx context.Context, gs *GraphState) (string, error) {
	var sb strings.Builder

	if len(gs.Memories) > 0 {
		sb.WriteString("Remembered context from earlier conversations:\n")
		for _, m := range gs.Memories {
			sb.WriteString(m.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(gs.ToolResults) > 0 {
		results, err := json.Marshal(gs.ToolResults)
		if err != nil {
			return "", fmt.Errorf("encode tool results: %w", err)
		}
		sb.WriteString("Tool results:\n")
		sb.Write(results)
		sb.WriteString("\n\n")
	}

	if len(gs.Evidence) > 0 {
		sb.WriteString("Evidence:\n")
		sb.WriteString(gs.Evidence.ContextText())
		sb.WriteString("\n\n")
	}

	messages := make([]model.Message, 0, len(gs.History)+1)
	for _, t := range gs.History {
		role := "user"
		if t.Role != "user" {
			role = "assistant"
		}
		messages = append(messages, model.Message{Role: role, Content: t.Content})
	}
	messages = append(messages, model.Message{Role: "user", Content: gs.UserText})

	req := model.Request{
		Instructions: g.instructions + "\n\n" + sb.String(),
		Messages:     messages,
	}

	var reply string
	err := g.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		reply, genErr = g.generator.Generate(ctx, req)
		return genErr
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}
