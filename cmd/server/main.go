// The tickgate server exposes rate limit checks over HTTP: POST /check
// for admission decisions, /metrics for Prometheus, /health for probes.
//
// Configuration via environment:
//
//	PORT            listen port (default 8080)
//	REDIS_ADDR      Redis address; empty uses in-memory storage
//	REDIS_PASSWORD  Redis password
//	PERIOD_TICKS    default refill window in ticks (default 10000 = 10s)
//	CAPACITY        default burst capacity (default 100)
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/yourusername/tickgate/api"
	"github.com/yourusername/tickgate/core"
	"github.com/yourusername/tickgate/metrics"
	"github.com/yourusername/tickgate/store"
)

func main() {
	port := getEnv("PORT", "8080")
	redisAddr := getEnv("REDIS_ADDR", "")

	var storage store.Store
	if redisAddr != "" {
		redisStore := store.NewRedisStore(store.RedisConfig{
			Addr:     redisAddr,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
			TTL:      5 * time.Minute,
		})
		if err := redisStore.Ping(); err != nil {
			log.Fatal("failed to connect to Redis: ", err)
		}
		log.Println("connected to Redis at", redisAddr)
		storage = redisStore
	} else {
		log.Println("using in-memory storage (single instance only)")
		storage = store.NewMemoryStore()
	}

	defaultPolicy := core.Config{
		Period:   core.Ticks(getEnvUint32("PERIOD_TICKS", 10_000)),
		Capacity: getEnvUint32("CAPACITY", 100),
	}

	recorder := metrics.NewRecorder(nil)

	handler, err := api.NewHandler(storage, defaultPolicy, nil, recorder)
	if err != nil {
		log.Fatal("invalid default policy: ", err)
	}

	http.HandleFunc("/check", handler.CheckRateLimit)
	http.Handle("/metrics", metrics.Handler())
	http.HandleFunc("/health", healthHandler)

	addr := ":" + port
	log.Printf("tickgate listening on %s (policy: %d calls per %d ticks)",
		addr, defaultPolicy.Capacity, defaultPolicy.Period)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "tickgate",
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint32(key string, defaultValue uint32) uint32 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return uint32(parsed)
}
