// Command load drives booking creation or checkout against a running API
// and prints throughput and latency percentiles.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/auth"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
)

type LoadTestConfig struct {
	BaseURL           string `env:"TARGET_URL,default=http://localhost:8080/api/v1"`
	Scenario          string `env:"LOAD_SCENARIO,default=booking"`
	RequestsPerSecond int    `env:"REQUESTS_PER_SECOND,default=200"`
	DurationSeconds   int    `env:"DURATION_SECONDS,default=30"`
	ConcurrentWorkers int    `env:"CONCURRENT_WORKERS,default=50"`
	Providers         int    `env:"PROVIDERS,default=20"`
	JwtSecret         string `env:"JWT_SECRET"`
	JwtIssuer         string `env:"APP_NAME,default=booking_service"`
}

type Stats struct {
	successCount  atomic.Int64
	errorCount    atomic.Int64
	statusCounts  sync.Map
	responseTimes []float64
	mu            sync.Mutex
}

func (s *Stats) record(status int, seconds float64) {
	if status == fasthttp.StatusOK || status == fasthttp.StatusCreated {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	v, _ := s.statusCounts.LoadOrStore(status, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)

	s.mu.Lock()
	s.responseTimes = append(s.responseTimes, seconds)
	s.mu.Unlock()
}

func (s *Stats) sortedTimes() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	times := make([]float64, len(s.responseTimes))
	copy(times, s.responseTimes)
	sort.Float64s(times)
	return times
}

// percentile expects sorted input.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// scenario builds the path and body of the next request.
type scenario func(n int64) (path string, body any)

func newScenario(cfg LoadTestConfig) (scenario, error) {
	providers := make([]uuid.UUID, max(cfg.Providers, 1))
	for i := range providers {
		providers[i] = uuid.New()
	}
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	switch cfg.Scenario {
	case "booking":
		return func(n int64) (string, any) {
			// spread slots so providers do not collide on the same time
			at := start.Add(time.Duration(n) * time.Minute)
			return "/bookings", model.BookingCreateRequest{
				ProviderID:      providers[n%int64(len(providers))],
				ProviderType:    model.ProviderTrainer,
				ScheduledAt:     &at,
				DurationMinutes: 60,
				SessionMode:     model.SessionOnline,
				PackageType:     "single",
				Amount:          decimal.NewFromInt(1000),
			}
		}, nil
	case "checkout":
		return func(n int64) (string, any) {
			return "/payments/checkout", model.CheckoutRequest{
				Amount:        decimal.NewFromInt(500 + n%500),
				Currency:      "BDT",
				CustomerName:  "Load Test",
				CustomerEmail: fmt.Sprintf("load+%d@healthythako.test", n),
			}
		}, nil
	}
	return nil, fmt.Errorf("unknown LOAD_SCENARIO %q (booking|checkout)", cfg.Scenario)
}

func sendRequest(client *fasthttp.Client, cfg LoadTestConfig, token string, next scenario, n int64, stats *Stats) {
	path, body := next(n)
	payload, err := json.Marshal(body)
	if err != nil {
		stats.record(0, 0)
		return
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(strings.TrimRight(cfg.BaseURL, "/") + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Origin", "https://load.healthythako.test")
	req.SetBody(payload)

	start := time.Now()
	err = client.DoTimeout(req, resp, 60*time.Second)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		stats.record(0, elapsed)
		return
	}
	stats.record(resp.StatusCode(), elapsed)
}

func main() {
	var cfg LoadTestConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.JwtSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required to sign load test sessions")
		os.Exit(1)
	}
	next, err := newScenario(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, err := auth.New(cfg.JwtSecret, cfg.JwtIssuer).Issue(model.Session{
		UserID: uuid.New(),
		Role:   model.RoleClient,
		Email:  "load@healthythako.test",
	}, time.Duration(cfg.DurationSeconds+300)*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	totalRequests := cfg.RequestsPerSecond * cfg.DurationSeconds
	fmt.Println("Starting load test...")
	fmt.Printf("Target: %s (%s)\n", cfg.BaseURL, cfg.Scenario)
	fmt.Printf("Total requests: %d\n", totalRequests)
	fmt.Printf("Target RPS: %d\n", cfg.RequestsPerSecond)
	fmt.Printf("Concurrent workers: %d\n", cfg.ConcurrentWorkers)
	fmt.Printf("Duration: %d seconds\n", cfg.DurationSeconds)
	fmt.Println(strings.Repeat("-", 50))

	stats := &Stats{}
	client := &fasthttp.Client{
		MaxConnsPerHost:     cfg.ConcurrentWorkers,
		MaxIdleConnDuration: 90 * time.Second,
	}

	jobs := make(chan int64, cfg.RequestsPerSecond)
	var wg sync.WaitGroup
	for i := 0; i < cfg.ConcurrentWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				sendRequest(client, cfg, token, next, n, stats)
			}
		}()
	}

	startTime := time.Now()
	var sent int64
	for i := 0; i < cfg.DurationSeconds && sent < int64(totalRequests); i++ {
		batchStart := time.Now()
		for j := 0; j < cfg.RequestsPerSecond && sent < int64(totalRequests); j++ {
			jobs <- sent
			sent++
		}

		success := stats.successCount.Load()
		failed := stats.errorCount.Load()
		fmt.Printf("[%ds] Completed: %d | Success: %d | Errors: %d\n", i+1, success+failed, success, failed)

		if elapsed := time.Since(batchStart); elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}
	close(jobs)
	wg.Wait()

	report(stats, time.Since(startTime).Seconds())
}

func report(stats *Stats, duration float64) {
	success := stats.successCount.Load()
	failed := stats.errorCount.Load()
	total := success + failed
	times := stats.sortedTimes()

	var avg float64
	for _, t := range times {
		avg += t
	}
	if len(times) > 0 {
		avg /= float64(len(times))
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Duration: %.2f seconds\n", duration)
	fmt.Printf("Total requests: %d\n", total)
	fmt.Printf("Successful: %d\n", success)
	fmt.Printf("Failed: %d\n", failed)
	if total > 0 {
		fmt.Printf("Success rate: %.2f%%\n", float64(success)/float64(total)*100)
	}
	stats.statusCounts.Range(func(k, v any) bool {
		fmt.Printf("  HTTP %d: %d\n", k.(int), v.(*atomic.Int64).Load())
		return true
	})
	if duration > 0 {
		fmt.Printf("\nActual RPS: %.2f\n", float64(total)/duration)
	}
	fmt.Printf("\nResponse times:\n")
	fmt.Printf("  Average: %.2f ms\n", avg*1000)
	fmt.Printf("  P50: %.2f ms\n", percentile(times, 0.50)*1000)
	fmt.Printf("  P95: %.2f ms\n", percentile(times, 0.95)*1000)
	fmt.Printf("  P99: %.2f ms\n", percentile(times, 0.99)*1000)
	if len(times) > 0 {
		fmt.Printf("  Min: %.2f ms\n", times[0]*1000)
		fmt.Printf("  Max: %.2f ms\n", times[len(times)-1]*1000)
	}
}
