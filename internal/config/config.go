package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig
	Embedding   EmbeddingConfig
	Gallery     GalleryConfig
	Recognition RecognitionConfig
	Legacy      LegacyConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL string // embedding service base URL, defaults to http://localhost:8000
}

type GalleryConfig struct {
	Path      string // path to the gallery blob file (default encodings.gob)
	Backend   string // "file" or "postgres" (default "file")
	ImagesDir string // reference image directory (default Images)
}

type RecognitionConfig struct {
	MatchThreshold  float64 `yaml:"match_threshold"`
	CooldownMinutes int     `yaml:"cooldown_minutes"`
}

// LegacyConfig points at the original MySQL deployment for one-off imports.
type LegacyConfig struct {
	MySQLDSN string // e.g. attendance:secret@tcp(localhost:3306)/attendance
}

// recognitionDefaults mirrors the structure of defaults.yaml.
type recognitionDefaults struct {
	Recognition RecognitionConfig `yaml:"recognition"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable, falling back to a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var defaults recognitionDefaults
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// Embedded file, should never happen in practice.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Gallery: GalleryConfig{
			Path:      envString("GALLERY_PATH", "encodings.gob"),
			Backend:   envString("GALLERY_BACKEND", "file"),
			ImagesDir: envString("IMAGES_DIR", "Images"),
		},
		Recognition: RecognitionConfig{
			MatchThreshold:  envFloat("MATCH_THRESHOLD", defaults.Recognition.MatchThreshold),
			CooldownMinutes: envInt("COOLDOWN_MINUTES", defaults.Recognition.CooldownMinutes),
		},
		Legacy: LegacyConfig{
			MySQLDSN: os.Getenv("LEGACY_MYSQL_DSN"),
		},
	}
}
