package probes

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusUp   = "up"
	StatusDown = "down"

	defaultTimeout = 5 * time.Second
)

// Probe checks one dependency. Check must honor ctx.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type Result struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Run executes all probes concurrently, each bounded by timeout.
func Run(ctx context.Context, timeout time.Duration, probes []Probe) map[string]Result {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	results := make(map[string]Result, len(probes))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, p := range probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := p.Check(probeCtx)

			result := Result{Status: StatusUp, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				result.Status = StatusDown
				result.Error = err.Error()
			}

			mu.Lock()
			results[p.Name] = result
			mu.Unlock()
		}(p)
	}

	wg.Wait()
	return results
}

// Healthy reports whether every result is up.
func Healthy(results map[string]Result) bool {
	for _, r := range results {
		if r.Status != StatusUp {
			return false
		}
	}
	return true
}

func Redis(client *redis.Client) Probe {
	return Probe{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// TCP checks that addr accepts connections, e.g. the SMTP relay.
func TCP(name, addr string) Probe {
	return Probe{
		Name: name,
		Check: func(ctx context.Context) error {
			var d net.Dialer
			conn, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", addr, err)
			}
			return conn.Close()
		},
	}
}
