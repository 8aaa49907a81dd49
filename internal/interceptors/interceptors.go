package interceptors

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/aegisshield/entity-network/internal/metrics"
)

// LoggingInterceptor logs gRPC requests and their outcome
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		var traceID string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("trace-id"); len(values) > 0 {
				traceID = values[0]
			}
		}

		resp, err := handler(ctx, req)

		duration := time.Since(start)
		if err != nil {
			logger.Error("gRPC request failed",
				"method", info.FullMethod,
				"trace_id", traceID,
				"code", status.Code(err).String(),
				"duration_ms", duration.Milliseconds(),
				"error", err)
		} else {
			logger.Debug("gRPC request completed",
				"method", info.FullMethod,
				"trace_id", traceID,
				"duration_ms", duration.Milliseconds())
		}

		return resp, err
	}
}

// MetricsInterceptor counts gRPC requests by method and status code
func MetricsInterceptor(collector *metrics.Collector) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		collector.RecordRequest("grpc", info.FullMethod, status.Code(err).String(), time.Since(start))
		return resp, err
	}
}

// RecoveryInterceptor turns handler panics into Internal errors
func RecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC handler panicked",
					"method", info.FullMethod,
					"panic", r)

				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}
