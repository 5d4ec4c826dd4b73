// Package core defines the shared data model of cinegraph: conversation
// turns, document chunks, the error taxonomy that separates recoverable
// collaborator failures from fatal ones, and the bounded retry policy used
// around every call to an opaque collaborator (embedding, generation,
// tools). Higher-level packages (index, retrieve, tool, memory, graph)
// depend on core and never on each other's internals.
package core
