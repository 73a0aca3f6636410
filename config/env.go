package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Pipeline PipelineConfig
	Server   ServerConfig
	Redis    RedisConfig
}

type PipelineConfig struct {
	DataDir      string
	DBPath       string
	OutFile      string
	SummariesDir string
	AgingBuckets []int
}

type ServerConfig struct {
	Addr     string
	CacheTTL int
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL, _ := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "300"))

	return Config{
		Pipeline: PipelineConfig{
			DataDir:      getEnv("DATA_DIR", "data"),
			DBPath:       getEnv("DB_PATH", "inventory.db"),
			OutFile:      getEnv("OUT_FILE", "vendor_summary.csv"),
			SummariesDir: getEnv("SUMMARIES_DIR", "summaries"),
			AgingBuckets: parseBuckets(getEnv("AGING_BUCKETS", "30,60,90")),
		},
		Server: ServerConfig{
			Addr:     getEnv("SERVER_ADDR", ":8080"),
			CacheTTL: cacheTTL,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
	}
}

// parseBuckets reads ascending day thresholds like "30,60,90".
// Malformed or non-ascending values fall back to the defaults.
func parseBuckets(raw string) []int {
	parts := strings.Split(raw, ",")
	buckets := make([]int, 0, len(parts))
	last := 0
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v <= last {
			log.Printf("Invalid AGING_BUCKETS %q, using defaults", raw)
			return []int{30, 60, 90}
		}
		buckets = append(buckets, v)
		last = v
	}
	if len(buckets) == 0 {
		return []int{30, 60, 90}
	}
	return buckets
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
