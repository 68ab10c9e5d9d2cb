// Package health exposes the agent's serving state over the standard gRPC
// health protocol.
package health

import (
	"context"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceClassifier reports whether verdicts are being produced. It is
// NOT_SERVING while the agent runs without a predictor.
const ServiceClassifier = "classifier"

// Server wraps a gRPC server carrying only the health service.
type Server struct {
	grpcServer *grpc.Server
	status     *health.Server
}

// New creates the health server. The overall status is SERVING; the
// classifier status follows classifying.
func New(classifying bool) *Server {
	s := &Server{
		grpcServer: grpc.NewServer(),
		status:     health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.status)
	s.status.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.SetClassifying(classifying)
	return s
}

// SetClassifying updates the classifier service status.
func (s *Server) SetClassifying(ok bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.status.SetServingStatus(ServiceClassifier, st)
}

// Check returns the status of service as a remote client would see it.
func (s *Server) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.status.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}

// Listen binds addr and serves in the background.
func (s *Server) Listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	go func() {
		log.Printf("gRPC health server starting on %s", lis.Addr())
		if err := s.grpcServer.Serve(lis); err != nil {
			log.Printf("ERROR: gRPC health server stopped: %v", err)
		}
	}()
	return nil
}

// Stop marks every service NOT_SERVING and stops the server.
func (s *Server) Stop() {
	s.status.Shutdown()
	s.grpcServer.GracefulStop()
}
