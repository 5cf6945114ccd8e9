package config

type StorageConfig interface {
	GetStorageBackend() StorageBackend
	GetStorageKey() string
	GetStorageDir() string
	GetKeyringService() string
	GetRedisAddr() string
	GetRedisDB() int
}

type StorageBackend string

const (
	MemoryStorage  StorageBackend = "memory"
	KeyringStorage StorageBackend = "keyring"
	FileStorage    StorageBackend = "file"
	RedisStorage   StorageBackend = "redis"
)

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageBackend() StorageBackend {
	return StorageBackend(GetEnv("STORAGE_BACKEND", string(FileStorage)))
}

func (Storage) GetStorageKey() string {
	return GetEnv("TOKEN_STORAGE_KEY", "oauth_token")
}

func (Storage) GetStorageDir() string {
	return GetEnv("STORAGE_DIR", "./data")
}

func (Storage) GetKeyringService() string {
	return GetEnv("KEYRING_SERVICE", "tokenkeeper")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}
