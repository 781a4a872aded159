// Command healthcheck probes the booking service's gRPC health endpoint and
// exits non-zero unless it reports SERVING. Used as a container health check.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/grpcx"
)

func main() {
	addr := config.String("HEALTHCHECK_ADDR", "127.0.0.1:"+config.String("GRPC_PORT", "9083"))
	service := config.String("SERVICE_NAME", "booking-service")
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = grpcx.WithRequestID(ctx, grpcx.NewRequestID())

	conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		fmt.Fprintf(os.Stderr, "check: %v\n", err)
		os.Exit(1)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		fmt.Fprintf(os.Stderr, "%s is %s\n", service, resp.GetStatus())
		os.Exit(1)
	}
	fmt.Println("SERVING")
}
