package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	DataDir   string
	OutputDir string

	ShopDomain      string
	AccessToken     string
	APIVersion      string
	PageSize        int
	RateLimitRPS    int
	TimeoutMs       int
	MetafieldNS     string
	MetafieldKey    string
	ManualReviewTag string

	MutationConcurrency int
	DryRun              bool

	AffiliateBaseURL string

	BlobEndpoint string
	BlobToken    string

	ListenAddr string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		DataDir:   getEnv("DATA_DIR", filepath.Join(cwd, "files")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		ShopDomain:      getEnv("SHOPIFY_SHOP_DOMAIN", ""),
		AccessToken:     getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		APIVersion:      getEnv("SHOPIFY_API_VERSION", "2025-07"),
		PageSize:        getEnvInt("SHOPIFY_PAGE_SIZE", 150),
		RateLimitRPS:    getEnvInt("SHOPIFY_RATE_LIMIT_RPS", 2),
		TimeoutMs:       getEnvInt("SHOPIFY_TIMEOUT_MS", 30000),
		MetafieldNS:     getEnv("BGG_METAFIELD_NAMESPACE", "custom"),
		MetafieldKey:    getEnv("BGG_METAFIELD_KEY", "bgg_game_id"),
		ManualReviewTag: getEnv("MANUAL_REVIEW_TAG", "needs_bgg_manual"),

		MutationConcurrency: getEnvInt("MUTATION_CONCURRENCY", 8),
		DryRun:              getEnvBool("DRY_RUN", false),

		AffiliateBaseURL: getEnv("WEBSITE_URL", ""),

		BlobEndpoint: getEnv("BLOB_ENDPOINT", ""),
		BlobToken:    getEnv("BLOB_TOKEN", ""),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
	}

	if cfg.MutationConcurrency < 1 {
		cfg.MutationConcurrency = 8
	}
	if cfg.PageSize < 1 || cfg.PageSize > 250 {
		cfg.PageSize = 150
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// Dataset paths follow the BGG export naming used by the reference files.
func (c Config) IdentifierDatasetPath(kind string) string {
	return filepath.Join(c.DataDir, "export_boardgames_external_ids_"+kind+".csv")
}

func (c Config) PrimaryDatasetPath() string {
	return filepath.Join(c.DataDir, "export_boardgames_primary.csv")
}

func (c Config) RPGDatasetPath() string {
	return filepath.Join(c.DataDir, "export_rpgitems_primary.csv")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
