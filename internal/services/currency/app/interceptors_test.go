package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type recordedLog struct {
	lines []string
}

func (r *recordedLog) logf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		err     error
		wantLog bool
	}{
		{name: "success", err: nil, wantLog: false},
		{name: "not found", err: status.Error(codes.NotFound, "missing"), wantLog: false},
		{name: "unavailable", err: status.Error(codes.Unavailable, "storage unavailable"), wantLog: true},
		{name: "plain error", err: errors.New("boom"), wantLog: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := &recordedLog{}
			interceptor := LoggingUnaryInterceptor(rec.logf)
			info := &grpc.UnaryServerInfo{FullMethod: "/currency.v1.CurrencyService/GetCurrency"}
			_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
				return nil, tc.err
			})
			if !errors.Is(err, tc.err) {
				t.Fatalf("err = %v, want %v", err, tc.err)
			}
			if got := len(rec.lines) > 0; got != tc.wantLog {
				t.Fatalf("logged = %v, want %v", got, tc.wantLog)
			}
			if tc.wantLog && !strings.Contains(rec.lines[0], "trace=-") {
				t.Fatalf("log line %q missing empty trace marker", rec.lines[0])
			}
		})
	}
}

type fakeServerStream struct {
	grpc.ServerStream
}

func (fakeServerStream) Context() context.Context { return context.Background() }

func TestLoggingStreamInterceptor(t *testing.T) {
	t.Parallel()

	rec := &recordedLog{}
	interceptor := LoggingStreamInterceptor(rec.logf)
	info := &grpc.StreamServerInfo{FullMethod: "/currency.v1.CurrencyService/ListCurrencies", IsServerStream: true}
	wantErr := status.Error(codes.Unavailable, "storage unavailable")
	err := interceptor(nil, fakeServerStream{}, info, func(any, grpc.ServerStream) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if len(rec.lines) != 1 || !strings.Contains(rec.lines[0], "ListCurrencies") {
		t.Fatalf("log lines = %v, want one ListCurrencies failure", rec.lines)
	}
}
