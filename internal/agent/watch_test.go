package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scriptV1 = `
scenarios:
  - name: v1
    steps:
      - data: "one"
`

const scriptV2 = `
scenarios:
  - name: v2
    steps:
      - data: "two"
`

func TestWatchScript_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scriptV1), 0o644))

	script, err := LoadScript(path)
	require.NoError(t, err)
	src := NewScriptSource(script)

	w, err := WatchScript(src, path, nil)
	require.NoError(t, err)
	defer w.Close()

	reloaded := make(chan error, 10)
	w.OnReload(func(err error) { reloaded <- err })

	require.NoError(t, os.WriteFile(path, []byte("scenarios: ["), 0o644))
	select {
	case err := <-reloaded:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after invalid write")
	}
	assert.Equal(t, "v1", src.Script().Scenarios[0].Name, "invalid script must not replace the current one")

	require.NoError(t, os.WriteFile(path, []byte(scriptV2), 0o644))
	require.Eventually(t, func() bool {
		return src.Script().Scenarios[0].Name == "v2"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchScript_MissingDir(t *testing.T) {
	_, err := WatchScript(NewScriptSource(nil), filepath.Join(t.TempDir(), "nope", "s.yaml"), nil)
	assert.Error(t, err)
}
