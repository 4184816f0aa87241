package catalog

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/astriolab/pmfuse/pkg/constants"
	"github.com/astriolab/pmfuse/pkg/errors"
)

// outputHeader is the column order of saved tables. Input columns come
// first, derived columns after.
var outputHeader = []string{
	ColID, ColRA, ColDec, ColRAErr, ColDecErr,
	ColPMRA, ColPMDec, ColPMRAErr, ColPMDecErr,
	ColMag, ColCandidateMember, ColUseForAlignment,
	ColRelPMRA, ColRelPMDec, ColRelPMRAErr, ColRelPMDecErr,
	ColAbsPMRA, ColAbsPMDec, ColAbsPMRAErr, ColAbsPMDecErr,
	ColInstrMag, ColInstrMagErr, ColLogProb, ColFrameCount,
}

// Save writes the table as CSV to path, creating or truncating the file.
func Save(path string, t *Table) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer f.Close()

	if err := Write(f, t); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return f.Sync()
}

// Write writes the table as CSV, header first, rows in table order.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(outputHeader); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		if err := cw.Write(starRecord(t.At(i))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func starRecord(s Star) []string {
	rec := make([]string, 0, len(outputHeader))
	rec = append(rec,
		s.ID.String(),
		formatFloat(s.RA),
		formatFloat(s.Dec),
		formatFloat(s.RAErr),
		formatFloat(s.DecErr),
	)
	rec = append(rec, pmRecord(s.RefPM)...)
	rec = append(rec,
		formatFloat(s.Mag),
		strconv.FormatBool(s.CandidateMember),
		strconv.FormatBool(s.UseForAlignment),
	)
	rec = append(rec, pmRecord(s.RelPM)...)
	rec = append(rec, pmRecord(s.AbsPM)...)
	if s.InstrMag != nil {
		rec = append(rec, formatFloat(s.InstrMag.Value), formatFloat(s.InstrMag.Err))
	} else {
		rec = append(rec, "", "")
	}
	if s.LogProb != nil {
		rec = append(rec, formatFloat(*s.LogProb))
	} else {
		rec = append(rec, "")
	}
	rec = append(rec, strconv.Itoa(s.FrameCount))
	return rec
}

func pmRecord(pm *PM) []string {
	if pm == nil {
		return []string{"", "", "", ""}
	}
	return []string{
		formatFloat(pm.RA),
		formatFloat(pm.Dec),
		formatFloat(pm.RAErr),
		formatFloat(pm.DecErr),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
