package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/email-delivery/internal/pkg/httputil"
	"github.com/redis/go-redis/v9"
)

// Component states.
const (
	statusUp         = "up"
	statusDown       = "down"
	statusDegraded   = "degraded"
	notConfiguredMsg = "not configured"
)

// queueBacklogThreshold marks the queue degraded when this many entries
// are waiting.
const queueBacklogThreshold = 10000

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string                    `json:"status"` // healthy, degraded, unhealthy
	Uptime string                    `json:"uptime"`
	Checks map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck is the state of one dependency.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker probes Postgres and Redis. Either may be nil.
type HealthChecker struct {
	db        *sql.DB
	redis     *redis.Client
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient, startTime: time.Now()}
}

// HandleHealth always answers 200; the body carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	httputil.OK(w, HealthStatus{
		Status: overallStatus(checks),
		Uptime: formatUptime(time.Since(hc.startTime)),
		Checks: checks,
	})
}

// HandleLiveness answers 200 while the process runs.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{"status": "alive", "uptime": formatUptime(time.Since(hc.startTime))})
}

// HandleReadiness answers 503 when the database is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := overallStatus(checks)
	code := http.StatusOK
	if overall == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	httputil.JSON(w, code, map[string]any{"ready": code == http.StatusOK, "status": overall, "checks": checks})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	probes := map[string]func(context.Context) ComponentCheck{
		"database": hc.checkDatabase,
		"redis":    hc.checkRedis,
		"queue":    hc.checkQueue,
	}
	ch := make(chan result, len(probes))
	for name, probe := range probes {
		go func() { ch <- result{name, probe(ctx)} }()
	}
	checks := make(map[string]ComponentCheck, len(probes))
	for range probes {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

// timed runs ping under a timeout and grades the latency.
func timed(ctx context.Context, timeout, slow time.Duration, ping func(context.Context) error) ComponentCheck {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	latency := time.Since(start)
	if err != nil {
		return ComponentCheck{Status: statusDown, Latency: latency.String(), Message: fmt.Sprintf("ping failed: %v", err)}
	}
	if latency > slow {
		return ComponentCheck{Status: statusDegraded, Latency: latency.String(), Message: fmt.Sprintf("slow response (%s)", latency)}
	}
	return ComponentCheck{Status: statusUp, Latency: latency.String(), Message: "connected"}
}

func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: statusDown, Message: notConfiguredMsg}
	}
	return timed(ctx, 3*time.Second, time.Second, hc.db.PingContext)
}

func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	if hc.redis == nil {
		return ComponentCheck{Status: statusDown, Message: notConfiguredMsg}
	}
	return timed(ctx, 2*time.Second, 500*time.Millisecond, func(ctx context.Context) error {
		return hc.redis.Ping(ctx).Err()
	})
}

// checkQueue reports the pending backlog.
func (hc *HealthChecker) checkQueue(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: statusDown, Message: notConfiguredMsg}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var pending int
	err := hc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_queue WHERE status = 'pending'`).Scan(&pending)
	if err != nil {
		return ComponentCheck{Status: statusDegraded, Message: fmt.Sprintf("queue check failed: %v", err)}
	}
	if pending > queueBacklogThreshold {
		return ComponentCheck{Status: statusDegraded, Message: fmt.Sprintf("backlog: %d pending", pending)}
	}
	return ComponentCheck{Status: statusUp, Message: fmt.Sprintf("%d pending", pending)}
}

// overallStatus is unhealthy when a configured database is down, degraded
// when anything else is off.
func overallStatus(checks map[string]ComponentCheck) string {
	if db, ok := checks["database"]; ok && db.Status == statusDown && db.Message != notConfiguredMsg {
		return "unhealthy"
	}
	for _, c := range checks {
		if c.Status == statusDegraded || (c.Status == statusDown && c.Message != notConfiguredMsg) {
			return "degraded"
		}
	}
	return "healthy"
}

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, d-time.Duration(days)*24*time.Hour)
	}
	return d.String()
}
