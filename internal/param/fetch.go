package param

import "context"

// Fetcher resolves a deployment secret by name. The only secret this
// service needs is the optional Hugging Face token for gated models.
type Fetcher interface {
	Fetch(context.Context, string) (string, error)
}
