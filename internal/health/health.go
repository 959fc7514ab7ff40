package health

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the grpc.health.v1 service reported for admission checks.
const ServiceName = "blobquota.v1.QuotaAdmission"

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker mirrors database reachability into the gRPC health service.
type Checker struct {
	server *health.Server
	db     Pinger
	log    logrus.FieldLogger
}

func NewChecker(db Pinger, log logrus.FieldLogger) *Checker {
	return &Checker{server: health.NewServer(), db: db, log: log}
}

// Register attaches the health service to s.
func (c *Checker) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, c.server)
}

// Probe pings the database once and updates the serving status.
func (c *Checker) Probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := c.db.PingContext(ctx); err != nil {
		c.log.WithError(err).Warn("database ping failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(ServiceName, status)
}

// Run probes every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Probe(ctx)
		}
	}
}

// Shutdown reports NOT_SERVING for every service and ignores later updates.
func (c *Checker) Shutdown() {
	c.server.Shutdown()
}
