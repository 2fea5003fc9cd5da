package config

import (
	"os"
	"path/filepath"
)

const (
	TokenStoreDatabase = "database"
	TokenStoreFile     = "file"
	TokenStoreMemory   = "memory"
)

type StorageConfig interface {
	GetTokenStore() string
	GetTokenFile() string
	GetTmpDir() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetTokenStore() string {
	return GetEnv("TOKEN_STORE", TokenStoreDatabase)
}

func (Storage) GetTokenFile() string {
	return GetEnv("TOKEN_FILE", filepath.Join(".secrets", "spotify_tokens.json"))
}

func (Storage) GetTmpDir() string {
	return GetEnv("TMP_DIR", os.TempDir())
}
