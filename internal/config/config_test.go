package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/votereport/internal/territory"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	t.Setenv("VOTEREPORT_DATA_DIR", "")
	t.Setenv("VOTEREPORT_REPORT_AUTHOR", "")
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Races, 1)
	assert.Equal(t, RaceSource{Key: "Governador", Path: "localvotacao_governador.csv"}, cfg.Races[0])

	assert.Equal(t, ".", cfg.Dataset.Dir)
	assert.Equal(t, ";", cfg.Dataset.Delimiter)
	assert.Equal(t, ColumnsConfig{
		Candidate: "nm_votavel",
		Zone:      "nr_zona",
		Location:  "nm_local_votacao",
		Votes:     "qt_votos",
	}, cfg.Dataset.Columns)
	assert.False(t, cfg.Dataset.Watch)
	assert.Equal(t, 500, cfg.Dataset.DebounceMs)

	assert.Equal(t, "pdf", cfg.Report.Format)
	assert.Equal(t, "Relatorio_", cfg.Report.FilenamePrefix)
	assert.Equal(t, 5, cfg.Report.TopN)
	assert.Equal(t, 75, cfg.Report.LocationWidth)
	assert.Equal(t, "include", cfg.Report.TiePolicy)
	assert.Equal(t, "DF", cfg.Report.RegionName)

	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 600, cfg.API.ReportTTLSec)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Empty(t, cfg.File)
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
races:
  - key: "Governador"
    path: "gov.csv"
  - key: "Senador"
    path: "/data/sen.tsv"
    delimiter: "\t"
dataset:
  dir: "/srv/tse"
territories:
  - zone: 1
    label: "Centro"
  - zone: 2
    label: "Norte"
report:
  top_n: 3
  tie_policy: "truncate"
  author: "Equipe de Campanha"
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))
	t.Setenv("VOTEREPORT_DATA_DIR", "")
	t.Setenv("VOTEREPORT_REPORT_AUTHOR", "")

	cfg, err := LoadFromFile(cfgPath)
	require.NoError(t, err)

	require.Len(t, cfg.Races, 2)
	assert.Equal(t, "Senador", cfg.Races[1].Key)
	assert.Equal(t, "\t", cfg.Races[1].Delimiter)
	assert.Equal(t, "/srv/tse", cfg.Dataset.Dir)
	assert.Equal(t, 3, cfg.Report.TopN)
	assert.Equal(t, "truncate", cfg.Report.TiePolicy)
	assert.Equal(t, "Equipe de Campanha", cfg.Report.Author)
	assert.Equal(t, 75, cfg.Report.LocationWidth, "unset keys keep defaults")
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, cfgPath, cfg.File)

	tbl := cfg.TerritoryTable()
	assert.Equal(t, "Centro", tbl.Label(1))
	assert.Equal(t, territory.Fallback, tbl.Label(15))

	assert.Equal(t, filepath.Join("/srv/tse", "gov.csv"), cfg.ResolvePath(cfg.Races[0]))
	assert.Equal(t, "/data/sen.tsv", cfg.ResolvePath(cfg.Races[1]))
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero top_n", "report:\n  top_n: 0\n"},
		{"bad tie policy", "report:\n  tie_policy: \"random\"\n"},
		{"race without path", "races:\n  - key: \"Governador\"\n"},
		{"duplicate race", "races:\n  - key: \"A\"\n    path: \"a.csv\"\n  - key: \"A\"\n    path: \"b.csv\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadFromFile(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultTerritoryTable(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "Águas Claras", cfg.TerritoryTable().Label(15))
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("VOTEREPORT_DATA_DIR", "/mnt/tse")
	t.Setenv("VOTEREPORT_REPORT_AUTHOR", "Gabinete")

	cfg := &Config{}
	overrideFromEnv(cfg)

	assert.Equal(t, "/mnt/tse", cfg.Dataset.Dir)
	assert.Equal(t, "Gabinete", cfg.Report.Author)
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	t.Setenv("VOTEREPORT_DATA_DIR", "")
	t.Setenv("VOTEREPORT_REPORT_AUTHOR", "")

	cfg := &Config{Dataset: DatasetConfig{Dir: "from-config"}}
	overrideFromEnv(cfg)

	assert.Equal(t, "from-config", cfg.Dataset.Dir)
}

// ── CheckSources ──

func TestCheckSources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gov.csv"), []byte("nm_votavel;nr_zona\n"), 0644))

	cfg := &Config{
		Races: []RaceSource{
			{Key: "Governador", Path: "gov.csv"},
			{Key: "Senador", Path: "missing.csv"},
		},
		Dataset: DatasetConfig{Dir: dir},
	}

	statuses := CheckSources(cfg)
	require.Len(t, statuses, 2)

	assert.Equal(t, "Governador", statuses[0].Race)
	assert.True(t, statuses[0].Exists)
	assert.Equal(t, int64(19), statuses[0].Size)
	assert.False(t, statuses[0].Modified.IsZero())

	assert.Equal(t, "Senador", statuses[1].Race)
	assert.False(t, statuses[1].Exists)
	assert.Equal(t, filepath.Join(dir, "missing.csv"), statuses[1].Path)
}

func TestDataDirOrigin(t *testing.T) {
	t.Setenv("VOTEREPORT_DATA_DIR", "")
	t.Setenv("VOTEREPORT_DATASET_DIR", "")
	assert.Equal(t, OriginDefault, DataDirOrigin(&Config{Dataset: DatasetConfig{Dir: "."}}))
	assert.Equal(t, OriginConfig, DataDirOrigin(&Config{Dataset: DatasetConfig{Dir: "/srv"}}))

	t.Setenv("VOTEREPORT_DATA_DIR", "/srv")
	assert.Equal(t, OriginEnv, DataDirOrigin(&Config{Dataset: DatasetConfig{Dir: "/srv"}}))
}

func TestShortenPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"gov.csv", "gov.csv"},
		{"/srv/data/2022/df/localvotacao_governador.csv", ".../df/localvotacao_governador.csv"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, shortenPath(tc.input), tc.input)
	}
}
