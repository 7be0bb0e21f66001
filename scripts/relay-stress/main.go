// HTTP stress test for the relayer's POST /relay endpoint.
// Spawns N concurrent workers, each submitting relay requests at a configurable rate.
// Reports throughput and status-class counts periodically.
//
// Usage:
//
//	go run scripts/relay-stress/main.go                        # 20 workers, 10 req/s each
//	go run scripts/relay-stress/main.go -workers 100 -rate 20  # 100 workers, 20 req/s each
//	go run scripts/relay-stress/main.go -duration 5m           # Run for 5 minutes
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	relayURL   = flag.String("url", "http://localhost:8080/relay", "Relayer endpoint URL")
	wallet     = flag.String("wallet", "0x1111111111111111111111111111111111111111", "Wallet contract address to relay for")
	cmd        = flag.Int("cmd", 3, "Command code to submit (0-255)")
	workers    = flag.Int("workers", 20, "Number of concurrent workers")
	rate       = flag.Int("rate", 10, "Requests per second per worker")
	duration   = flag.Duration("duration", 10*time.Minute, "Test duration (0 = run until Ctrl+C)")
	reportSecs = flag.Int("report", 10, "Report interval in seconds")
	rampUp     = flag.Duration("ramp", 5*time.Second, "Ramp-up time (spread worker start)")
)

// Global counters
var (
	totalSent     atomic.Int64
	totalAccepted atomic.Int64 // 2xx
	totalRejected atomic.Int64 // 4xx
	totalFailed   atomic.Int64 // 5xx
	totalNetErrs  atomic.Int64 // transport-level failures
	activeWorkers atomic.Int64
)

func main() {
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("  Relay Stress Test")
	fmt.Println("========================================")
	fmt.Printf("  URL:          %s\n", *relayURL)
	fmt.Printf("  Wallet:       %s\n", *wallet)
	fmt.Printf("  Cmd:          %d\n", *cmd)
	fmt.Printf("  Workers:      %d\n", *workers)
	fmt.Printf("  Rate:         %d req/s per worker\n", *rate)
	fmt.Printf("  Total RPS:    ~%d req/s\n", *workers**rate)
	fmt.Printf("  Duration:     %s\n", *duration)
	fmt.Printf("  Ramp-up:      %s\n", *rampUp)
	fmt.Println()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Done channel for coordinated shutdown
	done := make(chan struct{})

	// Start reporter
	go reporter(done)

	// Calculate delay between worker starts for ramp-up
	rampDelay := *rampUp / time.Duration(*workers)
	if rampDelay < time.Millisecond {
		rampDelay = time.Millisecond
	}

	// Start timer for duration
	var timer *time.Timer
	if *duration > 0 {
		timer = time.NewTimer(*duration)
	}

	// Launch workers with ramp-up
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		workerID := i + 1
		go func() {
			defer wg.Done()
			runWorker(workerID, done)
		}()

		// Ramp-up delay, stop launching if shutdown requested
		rampDone := false
		select {
		case <-done:
			rampDone = true
		case <-time.After(rampDelay):
		}
		if rampDone {
			break
		}
	}

	// Wait for signal or timeout
	select {
	case sig := <-sigChan:
		fmt.Printf("\nReceived %v - shutting down...\n", sig)
	case <-func() <-chan time.Time {
		if timer != nil {
			return timer.C
		}
		return make(chan time.Time) // block forever
	}():
		fmt.Printf("\nDuration %s reached - shutting down...\n", *duration)
	}

	close(done)
	wg.Wait()

	// Final report
	printFinalSummary()
}

func runWorker(id int, done <-chan struct{}) {
	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	activeWorkers.Add(1)
	defer activeWorkers.Add(-1)

	interval := time.Second / time.Duration(*rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-done:
			return

		case <-ticker.C:
			seq++
			memo := fmt.Sprintf("stress w%d n%d", id, seq)
			body := fmt.Sprintf(`{"wallet":%q,"cmd":%d,"memo":%q}`, *wallet, *cmd, memo)

			resp, err := client.Post(*relayURL, "application/json", strings.NewReader(body))
			totalSent.Add(1)
			if err != nil {
				totalNetErrs.Add(1)
				continue
			}

			// Drain so the transport can reuse the connection
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			switch {
			case resp.StatusCode < 300:
				totalAccepted.Add(1)
			case resp.StatusCode < 500:
				totalRejected.Add(1)
			default:
				totalFailed.Add(1)
			}
		}
	}
}

func reporter(done <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(*reportSecs) * time.Second)
	defer ticker.Stop()

	start := time.Now()
	lastSent := int64(0)
	lastTime := start

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%-9s %-8s %-10s %-10s %-8s %-8s %-8s %-8s\n",
		"Elapsed", "Workers", "Sent", "OK", "4xx", "5xx", "NetErr", "RPS")
	fmt.Println("----------------------------------------------------------------------")

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			now := time.Now()
			elapsed := now.Sub(start)
			dt := now.Sub(lastTime).Seconds()

			sent := totalSent.Load()
			ok := totalAccepted.Load()
			rejected := totalRejected.Load()
			failed := totalFailed.Load()
			netErrs := totalNetErrs.Load()
			active := activeWorkers.Load()

			rps := float64(sent-lastSent) / dt

			hours := int(elapsed.Hours())
			mins := int(elapsed.Minutes()) % 60
			secs := int(elapsed.Seconds()) % 60
			etime := fmt.Sprintf("%02d:%02d:%02d", hours, mins, secs)

			fmt.Printf("%-9s %-8d %-10d %-10d %-8d %-8d %-8d %-8.0f\n",
				etime, active, sent, ok, rejected, failed, netErrs, rps)

			lastSent = sent
			lastTime = now
		}
	}
}

func printFinalSummary() {
	sent := totalSent.Load()
	ok := totalAccepted.Load()

	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("  Final Summary")
	fmt.Println("========================================")
	fmt.Printf("  Total Sent:        %d\n", sent)
	fmt.Printf("  Accepted (2xx):    %d\n", ok)
	fmt.Printf("  Rejected (4xx):    %d\n", totalRejected.Load())
	fmt.Printf("  Failed (5xx):      %d\n", totalFailed.Load())
	fmt.Printf("  Network Errors:    %d\n", totalNetErrs.Load())
	if sent > 0 {
		fmt.Printf("  Success Rate:      %.1f%%\n", float64(ok)/float64(sent)*100)
	}
	fmt.Println()
}
