package table

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// SampleResult describes a written sample.
type SampleResult struct {
	Path    string
	RowsIn  int
	RowsOut int
	Bytes   int64
}

// Sample writes a reproducible random fraction of the rows of inPath to outPath,
// keeping their original order. The same seed always selects the same rows.
func Sample(inPath, outPath string, fraction float64, seed uint64) (SampleResult, error) {
	res := SampleResult{Path: outPath}
	if fraction <= 0 || fraction > 1 {
		return res, fmt.Errorf("sample fraction %v outside (0, 1]", fraction)
	}

	df, err := readFrame(inPath,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if err != nil {
		return res, err
	}
	res.RowsIn = df.Nrow()

	if res.RowsIn > 0 {
		k := max(1, int(math.Round(fraction*float64(res.RowsIn))))
		rng := rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // reproducible sampling, not security
		rows := rng.Perm(res.RowsIn)[:k]
		slices.Sort(rows)
		df = df.Subset(rows)
	}

	size, err := writeFrame(df, outPath)
	if err != nil {
		return res, err
	}
	res.RowsOut = df.Nrow()
	res.Bytes = size
	return res, nil
}
