package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpoints/greenledger/interfaces"
	"github.com/greenpoints/greenledger/jsonx"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/store"
	"github.com/greenpoints/greenledger/validator"
)

type cliEnv struct {
	dataDir string
	tuning  string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	tuning := filepath.Join(dir, "tuning.ini")
	require.NoError(t, os.WriteFile(tuning, []byte("[chain]\ndifficulty = 1\nmining_reward = 10\n"), 0o644))
	return &cliEnv{dataDir: filepath.Join(dir, "data"), tuning: tuning}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--data-dir", e.dataDir, "--tuning", e.tuning}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestCLI_SubmitMineAndQuery(t *testing.T) {
	env := newCLIEnv(t)

	txID := strings.TrimSpace(env.mustRun(t, "submit", "--from", "alice", "--to", "bob", "-a", "4", "-m", "task=recycling"))
	assert.NotEmpty(t, txID)

	out := env.mustRun(t, "mine", "--miner", "carol")
	assert.Contains(t, out, "block 1 ")

	out = env.mustRun(t, "balance", "bob")
	assert.Equal(t, "bob: 4 GP\n", out)
	out = env.mustRun(t, "balance", "carol")
	assert.Equal(t, "carol: 10 GP\n", out)

	var hist []map[string]interface{}
	require.NoError(t, jsonx.Unmarshal([]byte(env.mustRun(t, "history", "alice")), &hist))
	require.Len(t, hist, 1)
	assert.Equal(t, txID, hist[0]["transaction_id"])

	out = env.mustRun(t, "validate")
	assert.Contains(t, out, "chain is valid (2 blocks)")

	_, err := env.run(t, "mine", "--miner", "carol")
	assert.True(t, errors.Is(err, ledger.ErrNoPendingTransactions))

	_, err = env.run(t, "submit", "--from", "alice", "--to", "bob", "-a", "0")
	assert.Error(t, err)
}

func TestCLI_AppendAndTamper(t *testing.T) {
	env := newCLIEnv(t)

	hash := strings.TrimSpace(env.mustRun(t, "append", "action=login", "user=u1"))
	assert.Len(t, hash, 64)
	env.mustRun(t, "append", "--json", `{"action":"grant","amount":5}`)

	_, err := env.run(t, "append")
	assert.Error(t, err)
	_, err = env.run(t, "append", "novalue")
	assert.Error(t, err)

	// tamper with the persisted payload of block 1
	chainPath := filepath.Join(env.dataDir, store.ChainFileName)
	raw, err := os.ReadFile(chainPath)
	require.NoError(t, err)
	tampered := strings.Replace(string(raw), `"u1"`, `"u2"`, 1)
	require.NotEqual(t, string(raw), tampered)
	require.NoError(t, os.WriteFile(chainPath, []byte(tampered), 0o644))

	_, err = env.run(t, "validate")
	assert.True(t, errors.Is(err, validator.ErrChainIntegrity))
}

func TestCLI_DifficultyAndExport(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, "1\n", env.mustRun(t, "difficulty"))
	assert.Contains(t, env.mustRun(t, "difficulty", "3"), "from 1 to 3")
	assert.Equal(t, "3\n", env.mustRun(t, "difficulty"))

	_, err := env.run(t, "difficulty", "x")
	assert.True(t, errors.Is(err, ledger.ErrInvalidSetting))
	_, err = env.run(t, "difficulty", "99")
	assert.True(t, errors.Is(err, ledger.ErrInvalidSetting))

	env.mustRun(t, "submit", "--from", "alice", "--to", "bob", "-a", "2")
	exportPath := filepath.Join(t.TempDir(), "backup.json")
	assert.Contains(t, env.mustRun(t, "export", "-o", exportPath), "exported 1 blocks")

	raw, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var doc interfaces.ExportDocument
	require.NoError(t, jsonx.Unmarshal(raw, &doc))
	assert.Equal(t, 3, doc.Difficulty)
	assert.Len(t, doc.Pending, 1)
	assert.Empty(t, doc.AdminLog)
}

func TestCLI_InvalidStorage(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "--storage", "mongo", "validate")
	assert.Error(t, err)
}
