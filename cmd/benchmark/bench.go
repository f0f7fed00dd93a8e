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
	"os/exec"
	"strconv"
	"strings"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
	benchKey = "bench-key-12345"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	target := flag.String("target", "refresh", "Endpoint to attack: refresh, authorize or status")
	failRate := flag.Int("fail", 0, "Percent of token refreshes the mock rejects")
	flag.Parse()

	go startMockTokenServer(*failRate)

	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	configFile := "bench_config.yaml"
	if err := os.WriteFile(configFile, []byte(benchConfig), 0644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	defer os.Remove(configFile)
	defer os.Remove("bench_store.json")

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(), fmt.Sprintf("CONFIG_FILE=%s", configFile))

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	base := fmt.Sprintf("http://localhost:%d", appPort)
	waitForApp(base + "/health")
	seedProfile(base)

	done := make(chan struct{})
	go monitorResources(cmd.Process.Pid, done)

	fmt.Printf("Running %s benchmark: %s duration, %d req/s\n", *target, *duration, *rate)

	targeter := func(t *vegeta.Target) error {
		t.Header = http.Header{
			"Content-Type":  []string{"application/json"},
			"Authorization": []string{"Bearer " + benchKey},
		}
		switch *target {
		case "authorize":
			t.Method = http.MethodGet
			t.URL = base + "/api/oauth/anthropic/authorize?profileId=anthropic-oauth:bench"
		case "status":
			t.Method = http.MethodPost
			t.URL = base + "/api/oauth/anthropic"
			t.Body = []byte(`{"action":"status","profileId":"anthropic-oauth:bench"}`)
		default:
			t.Method = http.MethodPost
			t.URL = base + "/api/oauth/anthropic"
			t.Body = []byte(`{"action":"refresh","profileId":"anthropic-oauth:bench"}`)
		}
		return nil
	}

	// authorize answers with a redirect to the provider; do not follow it
	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true), vegeta.Redirects(vegeta.NoFollow))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()
	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("Status codes:    ", metrics.StatusCodes)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")
		seen := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if !seen[msg] && len(seen) < 5 {
				fmt.Println(msg)
				seen[msg] = true
			}
		}
	}
}

// startMockTokenServer answers the JSON token dialect. failRate percent of
// refreshes are rejected with invalid_grant to exercise the degraded path.
func startMockTokenServer(failRate int) {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)

		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")

		if req["grant_type"] == "refresh_token" && rand.Intn(100) < failRate {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token expired"}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"access_token":"bench-access-%d","expires_in":3600,"token_type":"Bearer"}`, time.Now().UnixNano())
	})

	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

func seedProfile(base string) {
	body, _ := json.Marshal(map[string]any{
		"id":            "anthropic-oauth:bench",
		"systemPrompts": []string{"bench"},
		"accessToken":   "bench-access-seed",
		"refreshToken":  "bench-refresh-seed",
	})
	req, _ := http.NewRequest(http.MethodPost, base+"/api/profiles", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+benchKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Failed to seed profile: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		log.Fatalf("Failed to seed profile: status %d", resp.StatusCode)
	}
}

func monitorResources(pid int, done chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	fmt.Println("\n--- Resource Usage (ps) ---")
	fmt.Printf("% -10s % -10s % -10s\n", "Time", "RSS(MB)", "CPU(%)")

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "rss=,%cpu=").Output()
			if err != nil {
				continue
			}
			fields := strings.Fields(string(out))
			if len(fields) < 2 {
				continue
			}
			rss, _ := strconv.ParseFloat(fields[0], 64)
			cpu, _ := strconv.ParseFloat(fields[1], 64)
			fmt.Printf("% -10s % -10.2f % -10.2f\n", time.Now().Format("15:04:05"), rss/1024, cpu)
		}
	}
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}

var benchConfig = fmt.Sprintf(`
server:
  port: "%d"
  env: development
  api_keys: ["%s"]
  cookie_secret: "bench-cookie-secret"
rate_limit:
  requests_per_second: 100000
  burst: 100000
log:
  level: "error"
store:
  driver: file
  path: "bench_store.json"
metrics:
  enabled: true
oauth:
  providers:
    anthropic:
      token_url: "http://localhost:%d/v1/oauth/token"
`, appPort, benchKey, mockPort)
