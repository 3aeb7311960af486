/*
Package xopmiddle is inbound HTTP middleware: it extracts the trace
context of each request with an xopprop.Propagation and puts the
resulting xoptrace.Bundle into the request context.
*/
package xopmiddle

import (
	"context"
	"net/http"

	"github.com/xoplog/secondary-sampling-go/xopprop"
	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Inbound struct {
	extract       xopprop.Extractor
	decorator     xopprop.Decorator
	requestToName func(*http.Request) string
	onError       func(http.ResponseWriter, *http.Request, error)
	sampler       PrimarySampler
	logger        *zap.Logger
}

// PrimarySampler decides the primary sampled flag of an inbound request.
// It sees the Bundle after extraction, including its secondary sampling
// state.  When ok is false, the propagated decision is kept.
type PrimarySampler func(r *http.Request, b xoptrace.Bundle) (sampled bool, ok bool)

type Option func(*Inbound)

// WithDecorator adjusts each new Bundle.  A *secondary.Sampling is a
// Decorator.
func WithDecorator(d xopprop.Decorator) Option {
	return func(i *Inbound) {
		i.decorator = d
	}
}

// WithRequestToName names requests in log lines.  The default uses the
// gorilla/mux route name when there is one, and the URL otherwise.
func WithRequestToName(requestToName func(*http.Request) string) Option {
	return func(i *Inbound) {
		i.requestToName = requestToName
	}
}

// WithErrorHandler is called instead of the next handler when extraction
// fails.  The default responds 500.
func WithErrorHandler(onError func(http.ResponseWriter, *http.Request, error)) Option {
	return func(i *Inbound) {
		i.onError = onError
	}
}

func WithPrimarySampler(sampler PrimarySampler) Option {
	return func(i *Inbound) {
		i.sampler = sampler
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(i *Inbound) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func New(prop xopprop.Propagation, opts ...Option) (Inbound, error) {
	extract, err := prop.Extractor(xopprop.HeaderGetter)
	if err != nil {
		return Inbound{}, errors.Wrap(err, "inbound extractor")
	}
	i := Inbound{
		extract:       extract,
		requestToName: routeName,
		onError:       internalError,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&i)
	}
	return i, nil
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if name := route.GetName(); name != "" {
			return name
		}
	}
	return r.URL.String()
}

func internalError(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (i Inbound) HandlerFuncMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx, err := i.makeChildContext(w, r)
			if err != nil {
				i.onError(w, r, err)
				return
			}
			next(w, r.WithContext(ctx))
		}
	}
}

func (i Inbound) HandlerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(i.HandlerFuncMiddleware()(next.ServeHTTP))
	}
}

// MuxMiddleware is for (*mux.Router).Use.
func (i Inbound) MuxMiddleware() mux.MiddlewareFunc {
	return i.HandlerMiddleware()
}

func (i Inbound) makeChildContext(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	name := i.requestToName(r)
	if name == "" {
		name = r.URL.String()
	}

	extracted, err := i.extract(r.Context(), r)
	if err != nil {
		i.logger.Error("could not extract trace context",
			zap.String("request", r.Method+" "+name),
			zap.Error(err))
		return nil, err
	}
	bundle := extracted.Bundle
	if bundle.Trace.TraceID().IsZero() {
		bundle.Trace.TraceID().SetRandom()
	}
	if bundle.Trace.SpanID().IsZero() {
		bundle.Trace.SpanID().SetRandom()
	}
	if i.decorator != nil {
		bundle = i.decorator.Decorate(bundle)
	}
	if i.sampler != nil {
		if sampled, ok := i.sampler(r, bundle); ok {
			bundle.Trace.SetSampled(sampled)
		}
	}

	w.Header().Set("traceresponse", bundle.Trace.String())
	i.logger.Debug("inbound request",
		zap.String("request", r.Method+" "+name),
		zap.Bool("propagated", extracted.Found),
		zap.Stringer("trace", bundle.Trace),
		zap.Stringer("parent", bundle.Parent))
	return xoptrace.IntoContext(r.Context(), bundle), nil
}
