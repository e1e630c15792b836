package db

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// LevelDBProvider implements DatabaseProvider for LevelDB
type LevelDBProvider struct {
	once sync.Once
	db   *leveldb.DB
	// sync forces an fsync on every write so a commit survives a crash
	sync bool
}

// NewLevelDBProvider opens (or creates) a LevelDB database in directory.
func NewLevelDBProvider(directory string) (*LevelDBProvider, error) {
	db, err := leveldb.OpenFile(directory, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open LevelDB at %s", directory)
	}
	return &LevelDBProvider{db: db, sync: true}, nil
}

// NewMemLevelDBProvider opens a LevelDB instance on in-memory storage.
func NewMemLevelDBProvider() (*LevelDBProvider, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open in-memory LevelDB")
	}
	return &LevelDBProvider{db: db}, nil
}

func (p *LevelDBProvider) writeOptions() *opt.WriteOptions {
	return &opt.WriteOptions{Sync: p.sync}
}

func (p *LevelDBProvider) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, err := p.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "leveldb get %q", key)
	}
	return value, nil
}

func (p *LevelDBProvider) GetBatch(ctx context.Context, keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	// LevelDB has no native MultiGet; a snapshot keeps the reads consistent
	snap, err := p.db.GetSnapshot()
	if err != nil {
		return nil, errors.Wrap(err, "leveldb snapshot")
	}
	defer snap.Release()

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := snap.Get(key, nil)
		if err != nil {
			if err == leveldb.ErrNotFound {
				continue
			}
			return nil, errors.Wrapf(err, "leveldb get %q", key)
		}
		result[string(key)] = value
	}
	return result, nil
}

func (p *LevelDBProvider) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrapf(p.db.Delete(key, p.writeOptions()), "leveldb delete %q", key)
}

// Close closes the database connection
func (p *LevelDBProvider) Close() error {
	// avoid double close when shared by several stores
	var err error
	p.once.Do(func() {
		err = p.db.Close()
	})
	return err
}

func (p *LevelDBProvider) Batch() DatabaseBatch {
	return &LevelDBBatch{
		batch: new(leveldb.Batch),
		db:    p.db,
		wo:    p.writeOptions(),
	}
}

// LevelDBBatch implements DatabaseBatch for LevelDB
type LevelDBBatch struct {
	batch *leveldb.Batch
	db    *leveldb.DB
	wo    *opt.WriteOptions
}

func (b *LevelDBBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

func (b *LevelDBBatch) Len() int {
	return b.batch.Len()
}

func (b *LevelDBBatch) Write(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(b.db.Write(b.batch, b.wo), "leveldb batch write")
}

func (b *LevelDBBatch) Reset() {
	b.batch.Reset()
}

func (b *LevelDBBatch) Close() error {
	// LevelDB batches hold no external resources
	return nil
}
