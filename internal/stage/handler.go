package stage

import (
	"context"

	"tenderlist/internal/queue"
)

// Handler is one stage of the tender pipeline as the workflow manager
// drives it. Prepare checks inputs and loads upstream artifacts, Execute
// produces this stage's artifacts and advances the item, and HealthCheck
// feeds the daemon status report. Each stage reads and writes only its own
// object-store keys so re-delivery is idempotent.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
