package health

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check reports whether one backing dependency is reachable.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Server exposes grpc.health.v1.Health for the API process.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewServer(logger *zap.Logger) *Server {
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	return &Server{
		grpc:   grpcServer,
		health: healthServer,
		logger: logger,
	}
}

// Serve blocks serving on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return s.grpc.Serve(lis)
}

// Monitor runs checks every interval until ctx is done. The overall status
// is NOT_SERVING while any check fails.
func (s *Server) Monitor(ctx context.Context, interval time.Duration, checks ...Check) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		healthy := s.runChecks(ctx, interval, checks)
		if healthy == serving {
			continue
		}
		serving = healthy
		if healthy {
			s.logger.Info("dependencies recovered, serving")
			s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		} else {
			s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		}
	}
}

func (s *Server) runChecks(ctx context.Context, timeout time.Duration, checks []Check) bool {
	healthy := true
	for _, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := check.Ping(checkCtx)
		cancel()
		if err != nil {
			s.logger.Warn("health check failed", zap.String("dependency", check.Name), zap.Error(err))
			healthy = false
		}
	}
	return healthy
}

// Shutdown flips every service to NOT_SERVING and stops the server.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
