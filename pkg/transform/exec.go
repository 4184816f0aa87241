package transform

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/constants"
	"github.com/astriolab/pmfuse/pkg/errors"
	"github.com/astriolab/pmfuse/pkg/frame"
	"github.com/astriolab/pmfuse/pkg/logging"
)

// Scratch file names inside a frame's working directory.
const (
	starsFile  = "input.stars"
	priorFile  = "prior.mat"
	matFile    = "output.mat"
	lnkFile    = "output.lnk"
	lnkColumns = 7 // id refx refy obsx obsy quality mag, plus optional magerr and saturation
)

// Exec fits frames by invoking an external point-matching solver.
//
// Per frame the adapter lays out <workdir>/<frameID>/ with the star subset
// as a whitespace table and, from the second iteration on, the previous
// residuals, then invokes
//
//	<command> input.stars <frame path> [prior.mat] [extra args...]
//
// with that directory as working directory. The solver must leave behind
// output.mat (post-fit residual offsets) and output.lnk (match table).
type Exec struct {
	Command string        // Solver executable
	Args    []string      // Extra arguments appended to every invocation
	WorkDir string        // Scratch root, constants.DefaultWorkDir when empty
	Timeout time.Duration // Per-frame bound, constants.DefaultTransformTimeout when zero
}

// Transform runs the solver for one frame and parses what it wrote.
func (e *Exec) Transform(ctx context.Context, req *Request) (*Result, error) {
	if e.Command == "" {
		return nil, errors.NewConfigError("transform", "no solver executable configured", nil)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	workDir := e.WorkDir
	if workDir == "" {
		workDir = constants.DefaultWorkDir
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultTransformTimeout
	}

	dir := filepath.Join(workDir, req.Frame.ID)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("mkdir", dir, err)
	}

	if err := writeStars(filepath.Join(dir, starsFile), req.Subset); err != nil {
		return nil, err
	}

	args := []string{starsFile, req.Frame.Path}
	if req.Prior != nil && req.Prior.Size() > 0 {
		if err := writeResiduals(filepath.Join(dir, priorFile), req.Prior.Residuals); err != nil {
			return nil, err
		}
		args = append(args, priorFile)
	}
	args = append(args, e.Args...)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.FromContext(ctx).Debug().
		Str("frame", req.Frame.ID).
		Str("command", e.Command).
		Int("stars", req.Subset.Len()).
		Msg("Running transform solver")

	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			return nil, errors.NewTimeoutError("transform", timeout.String(), "frame "+req.Frame.ID)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, errors.NewProcessError("transform", e.Command, string(out), err)
		}
	}

	residuals, err := readResiduals(filepath.Join(dir, matFile))
	if err != nil {
		return nil, err
	}
	matches, err := readMatches(filepath.Join(dir, lnkFile))
	if err != nil {
		return nil, err
	}

	return &Result{
		Transformation: &frame.Transformation{FrameID: req.Frame.ID, Residuals: residuals},
		Matches:        matches,
	}, nil
}

// writeStars serializes the subset for the solver. The proper motion
// columns carry each star's best current estimate, so later iterations
// hand the solver progressively better motions. The trailing flag marks
// the stars the solver must fit the transformation on; the rest are
// matched and measured only.
func writeStars(path string, tbl *catalog.Table) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("write", path, err)
	}

	w := bufio.NewWriterSize(f, constants.WriteBufferSize)
	fmt.Fprintln(w, "# id ra dec ra_err dec_err mag pmra pmdec use")
	for i := 0; i < tbl.Len(); i++ {
		s := tbl.At(i)
		pm := bestPM(s)
		use := 0
		if s.UseForAlignment {
			use = 1
		}
		fmt.Fprintf(w, "%s %.12g %.12g %.12g %.12g %.12g %.12g %.12g %d\n",
			s.ID, s.RA, s.Dec, s.RAErr, s.DecErr, s.Mag, pm.RA, pm.Dec, use)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", path, err)
	}
	return nil
}

func bestPM(s catalog.Star) catalog.PM {
	switch {
	case s.AbsPM != nil:
		return *s.AbsPM
	case s.RefPM != nil:
		return *s.RefPM
	default:
		return catalog.PM{}
	}
}

func writeResiduals(path string, residuals []frame.Offset) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("write", path, err)
	}

	w := bufio.NewWriterSize(f, constants.WriteBufferSize)
	fmt.Fprintln(w, "# dx dy")
	for _, r := range residuals {
		fmt.Fprintf(w, "%.12g %.12g\n", r.X, r.Y)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", path, err)
	}
	return nil
}

// readResiduals parses a MAT-style table: two float columns per data row,
// blank lines and #-comments skipped.
func readResiduals(path string) ([]frame.Offset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	defer f.Close()

	var out []frame.Offset
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		fields, ok := dataFields(sc.Text())
		if !ok {
			continue
		}
		if len(fields) < 2 {
			return nil, errors.NewParseError("mat", path,
				fmt.Sprintf("line %d: want 2 columns, got %d", line, len(fields)), nil)
		}
		dx, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.NewParseError("mat", path, fmt.Sprintf("line %d: bad dx", line), err)
		}
		dy, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errors.NewParseError("mat", path, fmt.Sprintf("line %d: bad dy", line), err)
		}
		out = append(out, frame.Offset{X: dx, Y: dy})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return out, nil
}

// readMatches parses a LNK-style table. Required columns: id, projected
// reference x/y, observed x/y, centroid quality, instrumental magnitude.
// Optional trailing columns carry the magnitude error and a saturation
// flag.
func readMatches(path string) ([]frame.Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	defer f.Close()

	var out []frame.Match
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		fields, ok := dataFields(sc.Text())
		if !ok {
			continue
		}
		if len(fields) < lnkColumns {
			return nil, errors.NewParseError("lnk", path,
				fmt.Sprintf("line %d: want %d columns, got %d", line, lnkColumns, len(fields)), nil)
		}

		vals := make([]float64, lnkColumns-1)
		for i := range vals {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, errors.NewParseError("lnk", path,
					fmt.Sprintf("line %d: bad column %d", line, i+2), err)
			}
			vals[i] = v
		}

		m := frame.Match{
			StarID:  catalog.StarID(fields[0]),
			RefX:    vals[0],
			RefY:    vals[1],
			ObsX:    vals[2],
			ObsY:    vals[3],
			Quality: vals[4],
			Mag:     vals[5],
		}
		if len(fields) > lnkColumns {
			magErr, err := strconv.ParseFloat(fields[lnkColumns], 64)
			if err != nil {
				return nil, errors.NewParseError("lnk", path,
					fmt.Sprintf("line %d: bad magnitude error", line), err)
			}
			m.MagErr = &magErr
		}
		if len(fields) > lnkColumns+1 {
			sat, err := strconv.ParseBool(fields[lnkColumns+1])
			if err != nil {
				return nil, errors.NewParseError("lnk", path,
					fmt.Sprintf("line %d: bad saturation flag", line), err)
			}
			m.Saturated = sat
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return out, nil
}

func dataFields(line string) ([]string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false
	}
	return strings.Fields(line), true
}
