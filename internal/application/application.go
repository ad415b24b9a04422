package application

import "context"

// UseCase is the common shape of application operations invoked by transports
// and workers.
type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}
