package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/astriolab/pmfuse/pkg/errors"
)

// Canonical column names for catalog CSV files. Archive exports use these
// names; header matching is case-insensitive.
const (
	ColID              = "source_id"
	ColRA              = "ra"
	ColDec             = "dec"
	ColRAErr           = "ra_error"
	ColDecErr          = "dec_error"
	ColPMRA            = "pmra"
	ColPMDec           = "pmdec"
	ColPMRAErr         = "pmra_error"
	ColPMDecErr        = "pmdec_error"
	ColMag             = "mag"
	ColCandidateMember = "candidate_member"
	ColUseForAlignment = "use_for_alignment"
)

// Derived columns written by Save. Load reads them back so a reduced
// table can be re-inspected or re-reduced.
const (
	ColRelPMRA     = "rel_pmra"
	ColRelPMDec    = "rel_pmdec"
	ColRelPMRAErr  = "rel_pmra_error"
	ColRelPMDecErr = "rel_pmdec_error"
	ColAbsPMRA     = "abs_pmra"
	ColAbsPMDec    = "abs_pmdec"
	ColAbsPMRAErr  = "abs_pmra_error"
	ColAbsPMDecErr = "abs_pmdec_error"
	ColInstrMag    = "instr_mag"
	ColInstrMagErr = "instr_mag_error"
	ColLogProb     = "log_prob"
	ColFrameCount  = "n_frames"
)

// LoadOption customizes catalog loading.
type LoadOption func(*loadConfig)

type loadConfig struct {
	qualityColumn string
}

// WithQualityFilter drops rows whose boolean quality column is false.
// The column must exist in the file.
func WithQualityFilter(column string) LoadOption {
	return func(c *loadConfig) {
		c.qualityColumn = strings.ToLower(strings.TrimSpace(column))
	}
}

// Load reads a catalog table from a CSV file on disk.
func Load(path string, opts ...LoadOption) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	t, err := Read(f, opts...)
	if err != nil {
		if parseErr, ok := err.(*errors.ParseError); ok && parseErr.File == "" {
			parseErr.File = path
		}
		return nil, err
	}
	return t, nil
}

// Read reads a catalog table from CSV data. The first row must be a header
// containing at least source_id, ra, and dec.
func Read(r io.Reader, opts ...LoadOption) (*Table, error) {
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.NewParseError("csv", "", "missing header row", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{ColID, ColRA, ColDec} {
		if _, ok := cols[required]; !ok {
			return nil, errors.NewParseError("csv", "",
				fmt.Sprintf("required column %q not in header", required), errors.ErrMissingColumn)
		}
	}
	if cfg.qualityColumn != "" {
		if _, ok := cols[cfg.qualityColumn]; !ok {
			return nil, errors.NewParseError("csv", "",
				fmt.Sprintf("quality column %q not in header", cfg.qualityColumn), errors.ErrMissingColumn)
		}
	}

	var stars []Star
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.NewParseError("csv", "", "malformed record", err)
		}

		row := rowReader{cols: cols, record: record, line: line}

		if cfg.qualityColumn != "" {
			ok, present := row.boolAt(cfg.qualityColumn)
			if present && !ok {
				continue
			}
		}

		star, err := row.star()
		if err != nil {
			return nil, err
		}
		stars = append(stars, star)
	}

	return NewTable(stars)
}

// rowReader resolves one CSV record against the header map.
type rowReader struct {
	cols   map[string]int
	record []string
	line   int
}

func (r rowReader) star() (Star, error) {
	id := r.stringAt(ColID)

	ra, err := r.floatAt(ColRA)
	if err != nil {
		return Star{}, err
	}
	dec, err := r.floatAt(ColDec)
	if err != nil {
		return Star{}, err
	}

	star := Star{
		ID:  StarID(id),
		RA:  ra,
		Dec: dec,
	}
	star.RAErr = r.optionalFloatAt(ColRAErr)
	star.DecErr = r.optionalFloatAt(ColDecErr)
	star.Mag = r.optionalFloatAt(ColMag)
	star.RefPM = r.pmAt(ColPMRA, ColPMDec, ColPMRAErr, ColPMDecErr)

	candidate, hasCandidate := r.boolAt(ColCandidateMember)
	if !hasCandidate {
		candidate = true
	}
	star.CandidateMember = candidate

	align, hasAlign := r.boolAt(ColUseForAlignment)
	if !hasAlign {
		align = candidate
	}
	star.UseForAlignment = align

	star.RelPM = r.pmAt(ColRelPMRA, ColRelPMDec, ColRelPMRAErr, ColRelPMDecErr)
	star.AbsPM = r.pmAt(ColAbsPMRA, ColAbsPMDec, ColAbsPMRAErr, ColAbsPMDecErr)
	if v, ok := r.maybeFloatAt(ColInstrMag); ok {
		star.InstrMag = &Quantity{Value: v, Err: r.optionalFloatAt(ColInstrMagErr)}
	}
	if lp, ok := r.maybeFloatAt(ColLogProb); ok {
		star.LogProb = &lp
	}
	star.FrameCount = int(r.optionalFloatAt(ColFrameCount))

	return star, nil
}

// pmAt assembles one proper-motion vector. The vector is present only
// when all four columns parse; partial rows behave as archive gaps.
func (r rowReader) pmAt(raCol, decCol, raErrCol, decErrCol string) *PM {
	pmra, ok1 := r.maybeFloatAt(raCol)
	pmdec, ok2 := r.maybeFloatAt(decCol)
	pmraErr, ok3 := r.maybeFloatAt(raErrCol)
	pmdecErr, ok4 := r.maybeFloatAt(decErrCol)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	return &PM{RA: pmra, Dec: pmdec, RAErr: pmraErr, DecErr: pmdecErr}
}

func (r rowReader) stringAt(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r rowReader) floatAt(col string) (float64, error) {
	raw := r.stringAt(col)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &errors.ParseError{
			Format:  "csv",
			Line:    r.line,
			Column:  r.cols[col] + 1,
			Message: fmt.Sprintf("column %q: invalid number %q", col, raw),
			Err:     err,
		}
	}
	return v, nil
}

// maybeFloatAt parses an optional float column. Empty cells, missing
// columns, and NaN markers report absence rather than an error.
func (r rowReader) maybeFloatAt(col string) (float64, bool) {
	raw := r.stringAt(col)
	if raw == "" || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "null") {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func (r rowReader) optionalFloatAt(col string) float64 {
	v, _ := r.maybeFloatAt(col)
	return v
}

// boolAt parses a boolean column. The second return reports whether the
// column exists and holds a value.
func (r rowReader) boolAt(col string) (value, present bool) {
	if _, ok := r.cols[col]; !ok {
		return false, false
	}
	raw := strings.ToLower(r.stringAt(col))
	switch raw {
	case "true", "t", "1", "yes":
		return true, true
	case "false", "f", "0", "no":
		return false, true
	default:
		return false, false
	}
}
