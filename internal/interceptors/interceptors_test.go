package interceptors

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aegisshield/entity-network/internal/metrics"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(discardLogger())

	resp, err := interceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		panic("nil map")
	})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))

	resp, err = interceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestMetricsInterceptor(t *testing.T) {
	collector := metrics.NewCollector(prometheus.NewRegistry())
	interceptor := MetricsInterceptor(collector)

	ok := func(context.Context, interface{}) (interface{}, error) { return nil, nil }
	missing := func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	}

	_, _ = interceptor(context.Background(), nil, info, ok)
	_, _ = interceptor(context.Background(), nil, info, ok)
	_, _ = interceptor(context.Background(), nil, info, missing)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.RequestsTotal.WithLabelValues("grpc", info.FullMethod, "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RequestsTotal.WithLabelValues("grpc", info.FullMethod, "NotFound")))
}

func TestLoggingInterceptorPassesThrough(t *testing.T) {
	interceptor := LoggingInterceptor(discardLogger())
	want := status.Error(codes.Unavailable, "draining")

	_, err := interceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return nil, want
	})
	assert.Equal(t, want, err)
}
