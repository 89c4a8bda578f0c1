package wrap

import (
	"context"
	"errors"
)

// contextError carries the LogCtx of the place where an error happened so the
// caller that finally logs it can report those fields.
type contextError struct {
	err    error
	logCtx LogCtx
}

func (e *contextError) Error() string {
	return e.err.Error()
}

func (e *contextError) Unwrap() error {
	return e.err
}

// Error attaches the LogCtx of ctx to err. Fields recorded deeper in the call
// chain are kept unless ctx overrides them.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	outer, ok := ctx.Value(LogCtxKey).(LogCtx)

	var inner *contextError
	if errors.As(err, &inner) {
		if !ok {
			return err
		}
		outer = merge(inner.logCtx, outer)
	}

	return &contextError{err: err, logCtx: outer}
}

// ErrorCtx returns ctx enriched with the LogCtx carried by err, if any.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *contextError
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}
