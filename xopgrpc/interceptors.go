/*
Package xopgrpc propagates the trace context through gRPC metadata.

Create the xopprop.Propagation with xopprop.Lowercase keys.  Servers put
the extracted xoptrace.Bundle into the handler's context; clients inject
the Bundle found in the call's context.
*/
package xopgrpc

import (
	"context"

	"github.com/xoplog/secondary-sampling-go/xopprop"
	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type Server struct {
	extract   xopprop.Extractor
	decorator xopprop.Decorator
	sampler   PrimarySampler
	logger    *zap.Logger
}

type ServerOption func(*Server)

// PrimarySampler decides the primary sampled flag of an inbound call.  It
// sees the Bundle after extraction, including its secondary sampling
// state.  When ok is false, the propagated decision is kept.
type PrimarySampler func(method string, md metadata.MD, b xoptrace.Bundle) (sampled bool, ok bool)

func WithPrimarySampler(sampler PrimarySampler) ServerOption {
	return func(s *Server) {
		s.sampler = sampler
	}
}

// WithDecorator adjusts each new Bundle.  A *secondary.Sampling is a
// Decorator.
func WithDecorator(d xopprop.Decorator) ServerOption {
	return func(s *Server) {
		s.decorator = d
	}
}

func WithLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewServer(prop xopprop.Propagation, opts ...ServerOption) (*Server, error) {
	extract, err := prop.Extractor(MetadataGetter)
	if err != nil {
		return nil, errors.Wrap(err, "grpc extractor")
	}
	s := &Server{
		extract: extract,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := s.childContext(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (s *Server) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := s.childContext(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, serverStream{ServerStream: ss, ctx: ctx})
	}
}

type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (ss serverStream) Context() context.Context { return ss.ctx }

func (s *Server) childContext(ctx context.Context, method string) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	}
	extracted, err := s.extract(ctx, md)
	if err != nil {
		s.logger.Error("could not extract trace context",
			zap.String("method", method),
			zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
	bundle := extracted.Bundle
	bundle.Trace.RebuildSetNonZero()
	if s.decorator != nil {
		bundle = s.decorator.Decorate(bundle)
	}
	if s.sampler != nil {
		if sampled, ok := s.sampler(method, md, bundle); ok {
			bundle.Trace.SetSampled(sampled)
		}
	}
	s.logger.Debug("inbound call",
		zap.String("method", method),
		zap.Bool("propagated", extracted.Found),
		zap.Stringer("trace", bundle.Trace))
	return xoptrace.IntoContext(ctx, bundle), nil
}

type Client struct {
	inject xopprop.Injector
}

func NewClient(prop xopprop.Propagation) (*Client, error) {
	inject, err := prop.Injector(MetadataSetter)
	if err != nil {
		return nil, errors.Wrap(err, "grpc injector")
	}
	return &Client{inject: inject}, nil
}

func (c *Client) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, err := c.outgoing(ctx)
		if err != nil {
			return err
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (c *Client) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx, err := c.outgoing(ctx)
		if err != nil {
			return nil, err
		}
		return streamer(ctx, desc, cc, method, opts...)
	}
}

// outgoing replaces the trace context keys of the outgoing metadata.
func (c *Client) outgoing(ctx context.Context) (context.Context, error) {
	b, ok := xoptrace.FromContext(ctx)
	if !ok {
		return ctx, nil
	}
	md := metadata.MD{}
	if err := c.inject(b, md); err != nil {
		return nil, errors.Wrap(err, "inject trace context")
	}
	out, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		out = out.Copy()
	} else {
		out = metadata.MD{}
	}
	for k, v := range md {
		out[k] = v
	}
	return metadata.NewOutgoingContext(ctx, out), nil
}
