// Package model declares the opaque collaborator contracts the agent
// depends on: Embedder (text to fixed-length vector) and Generator
// (prompt plus conversational context to text). Concrete providers live in
// the openai and anthropic subpackages; deterministic mocks for tests and
// local development live here.
package model
