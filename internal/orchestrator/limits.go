package orchestrator

import (
	"context"
	"time"
)

func (o *Orchestrator) aiEnabled() bool {
	return o.ai != nil && !o.cfg.DisableAI
}

// callContext bounds one hosted model call by AITimeout without extending
// an earlier parent deadline.
func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.AITimeout <= 0 {
		return ctx, func() {}
	}
	deadline := time.Now().Add(o.cfg.AITimeout)
	if parentDeadline, ok := ctx.Deadline(); ok && parentDeadline.Before(deadline) {
		deadline = parentDeadline
	}
	return context.WithDeadline(ctx, deadline)
}
