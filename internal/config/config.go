package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config interface {
	EnvConfig
	APIConfig
	OAuthConfig
	StorageConfig
	SecurityConfig
	StubConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetMetricsAddr() string
}

type mainConfig struct {
	EnvVars
	API
	OAuth
	Storage
	Security
	Stub
}

func New() Config {
	return mainConfig{}
}

// LoadDotenv loads the first .env found in the working directory or its
// two parents. Values already in the environment are overridden.
func LoadDotenv() {
	for _, p := range []string{".env", filepath.Join("..", ".env"), filepath.Join("..", "..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Overload(p); err != nil {
				log.Err(err).Str("path", p).Msg("Failed to load .env")
				return
			}
			log.Debug().Str("path", p).Msg("Loaded .env")
			return
		}
	}
}
