// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing callers to plug
// in any structured logger. The default for the façade is NoOpLogger;
// applications typically supply NewDefaultSlogLogger or their own adapter.
package logging
