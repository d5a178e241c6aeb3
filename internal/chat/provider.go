package chat

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a text-completion backend. The ledger never depends on it;
// a failed completion degrades to a canned reply.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
