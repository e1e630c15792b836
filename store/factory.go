package store

import (
	"fmt"

	"github.com/greenpoints/greenledger/db"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// FileStoreType keeps the chain in JSON files
	FileStoreType StoreType = "file"

	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// RedisStoreType uses the Redis implementation
	RedisStoreType StoreType = "redis"

	// MemoryStoreType keeps the ledger in memory only
	MemoryStoreType StoreType = "memory"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the database directory path (for file-based databases)
	Directory string `json:"directory" yaml:"directory"`

	// Redis holds the connection settings for RedisStoreType
	Redis db.RedisOptions `json:"redis" yaml:"redis"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	switch sc.Type {
	case FileStoreType, LevelDBStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty")
		}
		return nil
	case MemoryStoreType:
		return nil
	case RedisStoreType:
		if sc.Redis.Addr == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
		return nil
	case "":
		return fmt.Errorf("store type cannot be empty")
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// CreateStore builds the ChainStore selected by config.
func CreateStore(config *StoreConfig) (ChainStore, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case FileStoreType:
		return NewFileStore(config.Directory)
	case MemoryStoreType:
		return NewMemoryStore(), nil
	}

	provider, err := CreateProvider(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	s, err := NewGenericStore(provider)
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("failed to create chain store: %w", err)
	}
	return s, nil
}

// CreateProvider creates a database provider based on the configuration
func CreateProvider(config *StoreConfig) (db.DatabaseProvider, error) {
	switch config.Type {
	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Directory)
	case RedisStoreType:
		return db.NewRedisProvider(config.Redis)
	default:
		return nil, fmt.Errorf("store type %s has no database provider", config.Type)
	}
}
