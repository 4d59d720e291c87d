package server

import (
	"context"
	"time"

	"github.com/ithrek/syncadapter-currencies/internal/platform/otel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingUnaryInterceptor logs failed unary calls with their status code and trace id.
func LoggingUnaryInterceptor(logf func(string, ...any)) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logFailure(ctx, logf, info.FullMethod, start, err)
		return resp, err
	}
}

// LoggingStreamInterceptor logs failed streaming calls with their status code and trace id.
func LoggingStreamInterceptor(logf func(string, ...any)) grpc.StreamServerInterceptor {
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, stream)
		logFailure(stream.Context(), logf, info.FullMethod, start, err)
		return err
	}
}

func logFailure(ctx context.Context, logf func(string, ...any), method string, start time.Time, err error) {
	if err == nil || logf == nil {
		return
	}
	code := status.Code(err)
	// Client-side outcomes are not server faults.
	if code == codes.NotFound || code == codes.Canceled {
		return
	}
	traceID := otel.TraceID(ctx)
	if traceID == "" {
		traceID = "-"
	}
	logf("%s failed code=%s trace=%s duration=%s: %v", method, code, traceID, time.Since(start).Round(time.Millisecond), err)
}
