package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pptlabs/pastelink/internal/bundle"
	"github.com/pptlabs/pastelink/internal/config"
	"github.com/pptlabs/pastelink/internal/scenario"
)

const roundtripScenario = "internal/scenario/testdata/roundtrip.yml"

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestDefaultConfigMatchesDefaults(t *testing.T) {
	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(defaultConfig), &cfg))
	assert.Equal(t, config.Default(), cfg)
}

func TestEnsureConfigFile(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	configFile = filepath.Join(t.TempDir(), "nested", "pastelink.yml")
	require.NoError(t, ensureConfigFile())

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig, string(data))

	// an existing file is left alone
	require.NoError(t, os.WriteFile(configFile, []byte("match:\n  epsilon: 0.5\n"), 0o600))
	require.NoError(t, ensureConfigFile())
	data, err = os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "0.5")

	require.NoError(t, checkConfigFile(configFile))
}

func TestEnsureConfigFileRejectsExtension(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	configFile = filepath.Join(t.TempDir(), "pastelink.toml")
	err := ensureConfigFile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a supported configuration type")
}

func TestCheckConfigFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pastelink.yml")
	require.NoError(t, os.WriteFile(path, []byte("propagate:\n  mode: teleport\n"), 0o600))

	err := checkConfigFile(path)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRenderTable(t *testing.T) {
	if got := renderTable(nil, nil, nil); got != "" {
		t.Fatalf("expected empty table, got %q", got)
	}

	out := renderTable(
		[]string{"Name", "Count"},
		[][]string{{"alpha", "1"}, {"beta"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	for _, want := range []string{"Name", "Count", "alpha", "beta"} {
		if !strings.Contains(out, want) {
			t.Errorf("table is missing %q:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, "╭") {
		t.Errorf("expected rounded style, got:\n%s", out)
	}
}

func TestReplayTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, replay(&buf, config.Default(), []string{roundtripScenario}))

	out := buf.String()
	assert.Contains(t, out, "round trip")
	assert.Contains(t, out, "[Oval 3]")
	assert.Contains(t, out, "clips:")
}

func TestReplayJSON(t *testing.T) {
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })

	var buf bytes.Buffer
	require.NoError(t, replay(&buf, config.Default(), []string{roundtripScenario}))

	var results []scenario.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "round trip", results[0].Name)
	assert.NotEmpty(t, results[0].Steps)
	assert.Positive(t, results[0].Stats.Pastes)
}

const bareScenario = `
name: bare deck
documents:
  - name: deck.pptx
    slides:
      - shapes: []
      - shapes: []
windows:
  - {id: w1, document: deck.pptx, recorder: true}
steps:
  - {action: copy, window: w1, slides: [1]}
  - {action: paste, window: w1, slide: 2}
`

func TestReplayKeepsScenariosApart(t *testing.T) {
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })

	bare := filepath.Join(t.TempDir(), "bare.yml")
	require.NoError(t, os.WriteFile(bare, []byte(bareScenario), 0o600))

	var buf bytes.Buffer
	require.NoError(t, replay(&buf, config.Default(), []string{roundtripScenario, bare}))

	var results []scenario.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 2)
	for _, sl := range results[1].Slides {
		assert.Empty(t, sl.Scripts, "slide %d of the second scenario", sl.Index)
	}
	assert.Zero(t, results[1].Steps[1].Propagated)
}

func TestReplayDiskStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = bundle.BackendDisk
	cfg.Store.Dir = t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, replay(&buf, cfg, []string{roundtripScenario}))
	assert.FileExists(t, filepath.Join(cfg.Store.Dir, "bundles.db"))
}

func TestReplayMissingFile(t *testing.T) {
	var buf bytes.Buffer
	err := replay(&buf, config.Default(), []string{filepath.Join(t.TempDir(), "nope.yml")})
	require.Error(t, err)
}

func TestWithStoreDir(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, withStoreDir(&cfg))
	assert.Empty(t, cfg.Store.Dir, "memory store needs no directory")

	cfg.Store.Backend = bundle.BackendDisk
	require.NoError(t, withStoreDir(&cfg))
	assert.Equal(t, "bundles", filepath.Base(cfg.Store.Dir))

	cfg.Store.Dir = "/srv/pastelink"
	require.NoError(t, withStoreDir(&cfg))
	assert.Equal(t, "/srv/pastelink", cfg.Store.Dir)
}
