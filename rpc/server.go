package rpc

import (
	"errors"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ResolverService is the health service name of the swap monitor.
const ResolverService = "htlcswap.Resolver"

type Server struct {
	port       uint32
	grpcServer *grpc.Server
	health     *health.Server
}

// NewRPCServer creates a server that reports NOT_SERVING until SetServing is
// called.
func NewRPCServer(port uint32) *Server {
	svr := &Server{
		port:       port,
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
	}
	healthpb.RegisterHealthServer(svr.grpcServer, svr.health)
	svr.SetServing(false)

	return svr
}

func (server *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", server.port))
	if err != nil {
		return fmt.Errorf("failed to listen to port: %w", err)
	}

	return server.Serve(listener)
}

func (server *Server) Serve(listener net.Listener) error {
	log.Infof("gRPC server listening on %s", listener.Addr())
	if err := server.grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to initialize grpc server: %w", err)
	}

	return nil
}

// SetServing flips the overall and the resolver health status.
func (server *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	server.health.SetServingStatus("", status)
	server.health.SetServingStatus(ResolverService, status)
}

func (server *Server) Stop() {
	server.health.Shutdown()
	server.grpcServer.GracefulStop()
}
