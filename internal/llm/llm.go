package llm

import "context"

// TextGenerator is an interface for a client that can generate text
// from a prompt. Generation is best-effort enrichment everywhere it is
// used; failures must never block a primary save flow.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Close() error
}
