package xoptrace

import (
	"context"
)

type contextKeyType struct{}

var contextKey = contextKeyType{}

func IntoContext(ctx context.Context, b Bundle) context.Context {
	return context.WithValue(ctx, contextKey, b)
}

func FromContext(ctx context.Context) (Bundle, bool) {
	v := ctx.Value(contextKey)
	if v == nil {
		return Bundle{}, false
	}
	return v.(Bundle), true
}

func FromContextOrPanic(ctx context.Context) Bundle {
	b, ok := FromContext(ctx)
	if !ok {
		panic("Could not find trace bundle in context")
	}
	return b
}
