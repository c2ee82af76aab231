package job

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"slices"
)

type taskExecutor interface {
	Execute(ctx context.Context, payload json.RawMessage) error
}

// taskRegistry maps task names to executors. It is filled while options are
// applied and only read once the River client exists.
type taskRegistry struct {
	executors map[string]taskExecutor
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{executors: map[string]taskExecutor{}}
}

func (r *taskRegistry) register(name string, executor taskExecutor) {
	r.executors[name] = executor
}

func (r *taskRegistry) get(name string) (taskExecutor, bool) {
	executor, ok := r.executors[name]
	return executor, ok
}

func (r *taskRegistry) names() []string {
	return slices.Sorted(maps.Keys(r.executors))
}

type handler[P any] interface {
	Name() string
	Handle(context.Context, P) error
}

// typedExecutor decodes the stored JSON into P before calling the task.
type typedExecutor[P any, T handler[P]] struct {
	task T
}

func newTaskWrapper[P any, T handler[P]](task T) *typedExecutor[P, T] {
	return &typedExecutor[P, T]{task: task}
}

func (w *typedExecutor[P, T]) Execute(ctx context.Context, raw json.RawMessage) error {
	var payload P
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return errors.Join(ErrInvalidPayload, err)
		}
	}
	return w.task.Handle(ctx, payload)
}
