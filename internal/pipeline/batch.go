package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/revisa/internal/inbox"
	"github.com/MrWong99/revisa/internal/observe"
)

// ReviseAll revises inputs with at most batch.workers documents in flight.
// A failed document does not stop the others. Results are in input order; a
// failed document has a non-nil result carrying what was done before the
// failure. The error joins every per-document error.
func (p *Pipeline) ReviseAll(ctx context.Context, inputs []string) ([]*Result, error) {
	results := make([]*Result, len(inputs))
	errs := make([]error, len(inputs))

	var g errgroup.Group
	g.SetLimit(max(p.cfg.Batch.Workers, 1))
	for i, in := range inputs {
		g.Go(func() error {
			res, err := p.Revise(ctx, in)
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", in, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// Watch processes documents announced on events until the channel is closed
// or ctx is done. current is called once per document, so every run uses the
// configuration in effect when it starts. When the configuration asks for it,
// every revised document is also compared against its original.
func Watch(ctx context.Context, events <-chan inbox.Event, current func() *Pipeline) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(current().cfg.Batch.Workers, 1))

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return context.Cause(ctx)
		case ev, ok := <-events:
			if !ok {
				return g.Wait()
			}
			p := current()
			g.Go(func() error {
				p.handle(ctx, ev)
				return nil
			})
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, ev inbox.Event) {
	log := observe.Logger(ctx).With("document", ev.Path)
	res, err := p.Revise(ctx, ev.Path)
	if err != nil {
		log.Error("revision failed", "err", err)
		return
	}
	if !p.cfg.Watch.Compare {
		return
	}
	if _, err := p.Compare(ctx, ev.Path, res.Output); err != nil {
		log.Error("comparison failed", "err", err)
	}
}
