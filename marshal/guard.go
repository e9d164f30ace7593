package marshal

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// guard releases one acquired argument. Guards are pushed in acquisition order
// and fired in reverse.
type guard struct {
	position int
	release  func(ctx context.Context) error
	fired    bool
}

type guardStack struct {
	frame  *Frame
	guards []guard
}

func (s *guardStack) push(position int, release func(ctx context.Context) error) {
	s.guards = append(s.guards, guard{position: position, release: release})
}

// unwind fires every guard that has not fired yet, last pushed first. It is
// safe to call more than once.
func (s *guardStack) unwind() {
	for i := len(s.guards) - 1; i >= 0; i-- {
		g := &s.guards[i]
		if g.fired {
			continue
		}
		g.fired = true
		s.fire(g)
	}
	s.guards = s.guards[:0]
}

// fire runs a release action. Errors and panics are logged, never propagated:
// the call already has its outcome.
func (s *guardStack) fire(g *guard) {
	f := s.frame
	defer f.observer.Released(g.position)
	if g.release == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("release panicked",
				zap.String("function", f.desc.Name),
				zap.Int("position", g.position),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := g.release(context.WithoutCancel(f.ctx)); err != nil {
		f.logger.Warn("failed to release argument",
			zap.String("function", f.desc.Name),
			zap.Int("position", g.position),
			zap.Error(err))
	}
}
