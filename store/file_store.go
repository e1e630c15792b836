package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/jsonx"
	"github.com/greenpoints/greenledger/logx"
)

const (
	ChainFileName = "ledger.json"
	StateFileName = "ledger_state.json"
)

// FileStore keeps the chain as one JSON array in <dir>/ledger.json and the
// pool and settings in <dir>/ledger_state.json.
type FileStore struct {
	dir string

	mu sync.Mutex
	// chain bytes currently on disk, restored if the state file write fails
	lastChain []byte
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) ChainPath() string { return filepath.Join(s.dir, ChainFileName) }
func (s *FileStore) StatePath() string { return filepath.Join(s.dir, StateFileName) }

func (s *FileStore) LoadState(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &State{}
	raw, err := os.ReadFile(s.ChainPath())
	switch {
	case os.IsNotExist(err):
		logx.Info("FILESTORE", fmt.Sprintf("No chain file at %s", s.ChainPath()))
	case err != nil:
		return nil, errors.Wrapf(err, "read %s", s.ChainPath())
	case len(raw) > 0:
		var blocks []*block.Block
		if err := jsonx.UnmarshalUseNumber(raw, &blocks); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.ChainPath(), err)
		}
		st.Blocks = blocks
		s.lastChain = raw
	}

	raw, err = os.ReadFile(s.StatePath())
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrapf(err, "read %s", s.StatePath())
	case len(raw) > 0:
		var meta stateMeta
		if err := jsonx.UnmarshalUseNumber(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.StatePath(), err)
		}
		meta.applyTo(st)
	}
	return st, nil
}

// SaveState writes the chain file then the state file, each through a temp
// file and rename.
func (s *FileStore) SaveState(ctx context.Context, st *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	blocks := st.Blocks
	if blocks == nil {
		blocks = []*block.Block{}
	}
	chainRaw, err := jsonx.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode chain")
	}
	metaRaw, err := jsonx.MarshalIndent(metaOf(st), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode ledger state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.ChainPath(), chainRaw); err != nil {
		return err
	}
	if err := writeFileAtomic(s.StatePath(), metaRaw); err != nil {
		// keep the two files describing the same state
		if s.lastChain != nil {
			if rerr := writeFileAtomic(s.ChainPath(), s.lastChain); rerr != nil {
				logx.Error("FILESTORE", fmt.Sprintf("Failed to restore chain file after state write error: %v", rerr))
			}
		} else if rerr := os.Remove(s.ChainPath()); rerr != nil && !os.IsNotExist(rerr) {
			logx.Error("FILESTORE", fmt.Sprintf("Failed to remove chain file after state write error: %v", rerr))
		}
		return err
	}
	s.lastChain = chainRaw
	return nil
}

func (s *FileStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", path)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrapf(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.Wrapf(err, "rename %s", path)
	}
	return nil
}
