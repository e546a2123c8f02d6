package config

import (
	"os"
	"path/filepath"
	"time"
)

// DirOrigin represents where the dataset directory setting comes from.
type DirOrigin string

const (
	OriginEnv     DirOrigin = "env"
	OriginConfig  DirOrigin = "config"
	OriginDefault DirOrigin = "default"
)

// SourceStatus reports whether a configured race file is present on disk.
type SourceStatus struct {
	Race     string    `json:"race"`
	Path     string    `json:"path"`
	Display  string    `json:"display"` // shortened path for terminals
	Exists   bool      `json:"exists"`
	Size     int64     `json:"size,omitempty"`
	Modified time.Time `json:"modified,omitempty"`
}

// DataDirOrigin tells whether the dataset directory was set by the
// environment, by a config file, or left at its default.
func DataDirOrigin(cfg *Config) DirOrigin {
	if os.Getenv("VOTEREPORT_DATA_DIR") != "" || os.Getenv("VOTEREPORT_DATASET_DIR") != "" {
		return OriginEnv
	}
	if cfg.Dataset.Dir != "" && cfg.Dataset.Dir != "." {
		return OriginConfig
	}
	return OriginDefault
}

// CheckSources returns the on-disk status of every configured race file,
// in configuration order.
func CheckSources(cfg *Config) []SourceStatus {
	out := make([]SourceStatus, 0, len(cfg.Races))
	for _, r := range cfg.Races {
		out = append(out, checkSource(r.Key, cfg.ResolvePath(r)))
	}
	return out
}

// checkSource stats a single file.
func checkSource(race, path string) SourceStatus {
	status := SourceStatus{
		Race:    race,
		Path:    path,
		Display: shortenPath(path),
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return status
	}
	status.Exists = true
	status.Size = info.Size()
	status.Modified = info.ModTime()
	return status
}

// shortenPath keeps the last two path elements of long paths, e.g.
// "/srv/data/2022/df/localvotacao_governador.csv" → ".../df/localvotacao_governador.csv".
func shortenPath(path string) string {
	if len(path) <= 40 {
		return path
	}
	dir, file := filepath.Split(filepath.Clean(path))
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return file
	}
	return ".../" + parent + "/" + file
}
