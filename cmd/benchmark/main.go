package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
)

// Metrics
var (
	totalRequests uint64
	success201    uint64 // Newly ingested
	success200    uint64 // Duplicate acknowledgements
	fail4xx       uint64
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | redelivery")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		eventID := generateEventID()
		// The seeder assigns currencies round-robin; USD wallets sit at
		// indices 1, 5, 9, ...
		walletID := fmt.Sprintf("wallet-USD-%04d", rand.Intn(25)*4+1)

		payload := map[string]interface{}{
			"id":   eventID,
			"type": "incoming.payment.completed",
			"data": map[string]interface{}{
				"id":              eventID,
				"walletAddressId": walletID,
				"receivedAmount": map[string]interface{}{
					"value":      "5000",
					"assetCode":  "USD",
					"assetScale": 2,
				},
				"metadata": map[string]interface{}{
					"senderName":          "Load Tester",
					"senderWalletAddress": "https://wallet.example.com/accounts/bench-sender",
				},
			},
			"createdAt": time.Now().UTC().Format(time.RFC3339),
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/webhooks/payments", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch {
		case resp.StatusCode == 201:
			atomic.AddUint64(&success201, 1)
		case resp.StatusCode == 200:
			atomic.AddUint64(&success200, 1)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			atomic.AddUint64(&fail4xx, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func generateEventID() string {
	if workload == "redelivery" {
		// Redelivery: most of the traffic reuses a small id pool to
		// exercise the dedupe path.
		if rand.Float32() < 0.90 {
			return fmt.Sprintf("evt-hot-%d", rand.Intn(10))
		}
	}
	return fmt.Sprintf("evt-%d-%d", time.Now().UnixNano(), rand.Intn(1_000_000))
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&success201)
	s200 := atomic.LoadUint64(&success200)
	f4 := atomic.LoadUint64(&fail4xx)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	dupRate := float64(s200) / float64(total) * 100

	results := map[string]interface{}{
		"workload":       workload,
		"duration_sec":   d.Seconds(),
		"total_requests": total,
		"throughput_tps": tps,
		"ingested":       s201,
		"duplicates":     s200,
		"duplicate_pct":  dupRate,
		"client_errors":  f4,
		"errors":         fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
