package config

type StorageConfig interface {
	GetStorageBackend() string
	GetDataFolder() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetStorageBackend is one of "file", "redis" or "memory".
func (Storage) GetStorageBackend() string {
	return GetEnv("CREDENTIAL_STORE", "file")
}

func (Storage) GetDataFolder() string {
	return GetEnv("FOLDER", "./data")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "session-client:")
}
