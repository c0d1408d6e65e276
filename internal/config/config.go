package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dfarias/chessinsight/internal/apperr"
)

type Config struct {
	LichessToken string
	Username     string

	StockfishPath  string
	AnalysisDepth  int
	AnalysisTimeMs int

	CacheDir     string
	CacheEnabled bool

	LogLevel string

	AnalysisWorkerCount   int
	DefaultNumGames       int
	DefaultDaysBack       int
	MinPatternOccurrences int

	Addr string
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the tool still starts when .env is absent.
	_ = godotenv.Load()

	return Config{
		LichessToken:          os.Getenv("LICHESS_API_TOKEN"),
		Username:              os.Getenv("USERNAME"),
		StockfishPath:         envOr("STOCKFISH_PATH", "stockfish"),
		AnalysisDepth:         envIntOr("ANALYSIS_DEPTH", 15),
		AnalysisTimeMs:        envIntOr("ANALYSIS_TIME_MS", 2000),
		CacheDir:              envOr("CACHE_DIR", ".analysis-cache"),
		CacheEnabled:          envBoolOr("CACHE_ENABLED", true),
		LogLevel:              envOr("LOG_LEVEL", "INFO"),
		AnalysisWorkerCount:   envIntOr("ANALYSIS_WORKER_COUNT", 1),
		DefaultNumGames:       envIntOr("DEFAULT_NUM_GAMES", 10),
		DefaultDaysBack:       envIntOr("DEFAULT_DAYS_BACK", 30),
		MinPatternOccurrences: envIntOr("MIN_PATTERN_OCCURRENCES", 3),
		Addr:                  envOr("ADDR", ":8080"),
	}
}

// Validate checks the configuration and joins all problems into a single
// configuration error so the user sees everything at once.
func (c Config) Validate() error {
	var problems []string

	if c.LichessToken == "" {
		problems = append(problems, "LICHESS_API_TOKEN cannot be empty")
	}
	if c.Username == "" {
		problems = append(problems, "USERNAME cannot be empty")
	}
	if c.AnalysisDepth < 1 || c.AnalysisDepth > 30 {
		problems = append(problems, fmt.Sprintf("ANALYSIS_DEPTH must be between 1 and 30, got %d", c.AnalysisDepth))
	}
	if c.AnalysisTimeMs <= 0 {
		problems = append(problems, fmt.Sprintf("ANALYSIS_TIME_MS must be positive, got %d", c.AnalysisTimeMs))
	}
	if c.AnalysisWorkerCount < 1 {
		problems = append(problems, fmt.Sprintf("ANALYSIS_WORKER_COUNT must be at least 1, got %d", c.AnalysisWorkerCount))
	}
	if c.MinPatternOccurrences < 1 {
		problems = append(problems, fmt.Sprintf("MIN_PATTERN_OCCURRENCES must be at least 1, got %d", c.MinPatternOccurrences))
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel))
	}
	if c.StockfishPath != "" && strings.ContainsAny(c.StockfishPath, "\n\r") {
		problems = append(problems, "STOCKFISH_PATH contains invalid characters")
	}

	if len(problems) > 0 {
		return apperr.NewConfiguration(strings.Join(problems, "; "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}
