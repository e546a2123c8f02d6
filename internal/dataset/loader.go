// Package dataset loads per-polling-location race files into memory and keeps
// them in an explicit, reloadable cache.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/votereport/internal/config"
	"github.com/seenimoa/votereport/pkg/models"
	"github.com/seenimoa/votereport/pkg/utils"
)

// LoadOptions controls how race files are parsed.
type LoadOptions struct {
	Dir       string               // base directory for relative paths
	Delimiter rune                 // default ';'
	Columns   config.ColumnsConfig // required column names
	Parallel  int                  // max concurrent loads in LoadAll
}

// DefaultLoadOptions returns the column layout of the TSE polling-location
// exports with ';' as separator.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Dir:       ".",
		Delimiter: ';',
		Columns: config.ColumnsConfig{
			Candidate: "nm_votavel",
			Zone:      "nr_zona",
			Location:  "nm_local_votacao",
			Votes:     "qt_votos",
		},
		Parallel: 4,
	}
}

// OptionsFromConfig builds LoadOptions from the dataset section.
func OptionsFromConfig(cfg *config.Config) LoadOptions {
	opts := DefaultLoadOptions()
	opts.Dir = cfg.Dataset.Dir
	if d, ok := parseDelimiter(cfg.Dataset.Delimiter); ok {
		opts.Delimiter = d
	}
	c := cfg.Dataset.Columns
	if c.Candidate != "" {
		opts.Columns.Candidate = c.Candidate
	}
	if c.Zone != "" {
		opts.Columns.Zone = c.Zone
	}
	if c.Location != "" {
		opts.Columns.Location = c.Location
	}
	if c.Votes != "" {
		opts.Columns.Votes = c.Votes
	}
	return opts
}

func parseDelimiter(s string) (rune, bool) {
	switch s {
	case "":
		return 0, false
	case `\t`, "tab":
		return '\t', true
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, false
	}
	return r, true
}

// Load reads one race file. The returned *LoadError is nil on success.
//
// A missing file is LoadNotFound, absent required columns are
// LoadSchemaMismatch, anything else that prevents decoding (I/O failures,
// malformed rows, non-numeric zone or vote cells) is LoadUnreadable.
func Load(src config.RaceSource, opts LoadOptions) (models.Race, *models.LoadError) {
	path := src.Path
	if !filepath.IsAbs(path) && opts.Dir != "" {
		path = filepath.Join(opts.Dir, path)
	}
	race := models.Race{Key: src.Key, Source: path}

	fail := func(kind models.LoadErrorKind, err error) (models.Race, *models.LoadError) {
		return race, &models.LoadError{Race: src.Key, Source: path, Kind: kind, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fail(models.LoadNotFound, nil)
		}
		return fail(models.LoadUnreadable, err)
	}
	if info.IsDir() {
		return fail(models.LoadUnreadable, fmt.Errorf("%s is a directory", path))
	}

	rows, err := readRows(path, delimiterFor(src, path, opts))
	if err != nil {
		return fail(models.LoadUnreadable, err)
	}
	if len(rows) == 0 {
		return fail(models.LoadUnreadable, errors.New("file is empty"))
	}

	cols, err := resolveColumns(rows[0], opts.Columns)
	if err != nil {
		return fail(models.LoadSchemaMismatch, err)
	}

	records, err := decodeRows(rows[1:], cols)
	if err != nil {
		return fail(models.LoadUnreadable, err)
	}

	race.Records = records
	race.LoadedAt = time.Now()
	return race, nil
}

// delimiterFor picks the separator: per-race override, then extension,
// then the configured default.
func delimiterFor(src config.RaceSource, path string, opts LoadOptions) rune {
	if d, ok := parseDelimiter(src.Delimiter); ok {
		return d
	}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	if opts.Delimiter != 0 {
		return opts.Delimiter
	}
	return ';'
}

func readRows(path string, comma rune) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readWorkbook(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readWorkbook returns the rows of the first sheet.
func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// columnIndex holds the header positions of the required columns.
type columnIndex struct {
	candidate, zone, location, votes int
}

func resolveColumns(header []string, want config.ColumnsConfig) (columnIndex, error) {
	clean := make([]string, len(header))
	for i, h := range header {
		clean[i] = cleanCell(h)
	}

	var idx columnIndex
	var missing []string
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{want.Candidate, &idx.candidate},
		{want.Zone, &idx.zone},
		{want.Location, &idx.location},
		{want.Votes, &idx.votes},
	} {
		*c.dst = findColumn(clean, c.name)
		if *c.dst < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func decodeRows(rows [][]string, cols columnIndex) ([]models.VoteRecord, error) {
	records := make([]models.VoteRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2 // 1-based, after the header
		if blankRow(row) {
			continue
		}

		cell := func(col int) string {
			if col >= len(row) {
				return ""
			}
			return cleanCell(row[col])
		}

		zone, err := strconv.Atoi(cell(cols.zone))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid zone %q", line, cell(cols.zone))
		}
		votes, err := parseVotes(cell(cols.votes))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid vote count %q", line, cell(cols.votes))
		}
		name := utils.NormalizeName(cell(cols.candidate))
		if name == "" {
			return nil, fmt.Errorf("row %d: empty candidate name", line)
		}

		records = append(records, models.VoteRecord{
			Candidate: name,
			Zone:      zone,
			Location:  utils.NormalizeName(cell(cols.location)),
			Votes:     votes,
		})
	}
	return records, nil
}

// parseVotes accepts plain integers and integral floats ("12.0"), which
// spreadsheet exports sometimes produce.
func parseVotes(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, errors.New("negative")
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != float64(int(f)) {
		return 0, errors.New("not a count")
	}
	return int(f), nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func findColumn(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// LoadAll loads every source concurrently. It never stops at the first
// failure: races come back in source order with failed ones left out, and
// every failure is reported in the error list (also in source order).
func LoadAll(ctx context.Context, sources []config.RaceSource, opts LoadOptions) ([]models.Race, []*models.LoadError) {
	races := make([]models.Race, len(sources))
	errs := make([]*models.LoadError, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = &models.LoadError{Race: src.Key, Source: src.Path, Kind: models.LoadUnreadable, Err: err}
				return nil
			}
			races[i], errs[i] = Load(src, opts)
			return nil
		})
	}
	_ = g.Wait()

	okRaces := make([]models.Race, 0, len(sources))
	var loadErrs []*models.LoadError
	for i := range sources {
		if errs[i] != nil {
			loadErrs = append(loadErrs, errs[i])
			continue
		}
		okRaces = append(okRaces, races[i])
	}
	return okRaces, loadErrs
}
