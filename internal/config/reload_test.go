package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"awgobfs/internal/metrics"
)

// replaceConfig swaps the file in by rename so the watcher never sees a
// truncated profile.
func replaceConfig(t *testing.T, path, body string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(body), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}

func TestReloadSwapsConfig(t *testing.T) {
	path := writeConfig(t, "jc: 1\njmax: 10\n")
	r, err := NewReloadable(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 1, r.Get().Jc)

	type change struct{ old, new *Config }
	changes := make(chan change, 4)
	r.Watch(func(old, new *Config) { changes <- change{old, new} })

	before := metrics.SnapshotData().ConfigReloads
	replaceConfig(t, path, "jc: 5\njmax: 10\n")

	select {
	case c := <-changes:
		assert.Equal(t, 1, c.old.Jc)
		assert.Equal(t, 5, c.new.Jc)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not observe the rewrite")
	}
	assert.Equal(t, 5, r.Get().Jc)
	assert.Greater(t, metrics.SnapshotData().ConfigReloads, before)
}

func TestReloadKeepsConfigOnError(t *testing.T) {
	path := writeConfig(t, "jc: 2\njmax: 10\n")
	r, err := NewReloadable(path, nil)
	require.NoError(t, err)
	defer r.Close()

	replaceConfig(t, path, "jc: 2\njmin: 20\njmax: 10\n")
	// The watcher may be reloading the same file concurrently.
	assert.Error(t, r.Reload())
	assert.Equal(t, 10, r.Get().Jmax)
}

func TestReloadRefusesRestartOnlyChange(t *testing.T) {
	path := writeConfig(t, "max_message_size: 1400\n")
	r, err := NewReloadable(path, nil)
	require.NoError(t, err)
	defer r.Close()

	replaceConfig(t, path, "max_message_size: 1200\n")
	assert.Error(t, r.Reload())
	assert.Equal(t, 1400, r.Get().MaxMessageSize)
}

func TestNewReloadableRejectsInvalid(t *testing.T) {
	_, err := NewReloadable(writeConfig(t, "jc: -1\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial config load")
}

func TestValidateTransition(t *testing.T) {
	old := &Config{MaxMessageSize: 1400}
	assert.NoError(t, validateTransition(old, &Config{MaxMessageSize: 1400, Jc: 3}))
	assert.Error(t, validateTransition(old, &Config{MaxMessageSize: 1400, MetricsListen: ":9100"}))

	err := validateTransition(old, &Config{MaxMessageSize: 1200})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_message_size change requires restart: 1400 -> 1200")
}
