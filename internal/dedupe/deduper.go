package dedupe

import "context"

// Deduper claims event ids so an event is applied at most once across restarts.
// Seen claims the id; Commit marks it applied; Release gives back a claim whose event failed.
type Deduper interface {
	// if alreadySeen=true -> duplicate, event processing can be skipped
	Seen(ctx context.Context, id string) (alreadySeen bool, err error)
	Commit(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
	Health(ctx context.Context) error
}
