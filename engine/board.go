package engine

// Cell is one element of a board fill: an offset from the field center and
// an RGBA color in the display range.
type Cell struct {
	Offset [2]float64
	Color  [4]float64
	On     bool
}

// Board is the element-array strategy for checkerboard and random fills.
// The stimulus is a rigid numCheck x numCheck field of independently colored
// cells rather than a single texture; timing modulation and phase motion do
// not apply (the array-draw primitive has no per-texel animation), and
// position updates move the whole field.
type Board struct {
	Cells     []Cell
	CellSize  [2]float64
	FieldSize [2]float64
}

// GenerateBoard builds the cell grid for a checkerboard or random fill.
// Checkerboards alternate parity; random boards draw an independent boolean
// per cell from the stimulus's fill stream, so a fill seed reproduces the
// same board.
func GenerateBoard(d *Descriptor, lv Levels) (*Board, error) {
	if d.Fill != FillCheckerboard && d.Fill != FillRandom {
		return nil, &ConfigError{Stim: d.Name, Reason: "fill mode " + d.Fill.String() + " is not a board fill"}
	}
	if d.NumCheck < 1 {
		return nil, &ConfigError{Stim: d.Name, Reason: "board needs at least one check"}
	}

	high, low := lv.boardLevels(d.ContrastChannel)

	b := &Board{
		CellSize: d.CheckSize,
		FieldSize: [2]float64{
			d.CheckSize[0] * float64(d.NumCheck),
			d.CheckSize[1] * float64(d.NumCheck),
		},
	}

	n := d.NumCheck
	for row := -n / 2; row < n-n/2; row++ {
		for col := -n / 2; col < n-n/2; col++ {
			on := false
			switch d.Fill {
			case FillCheckerboard:
				on = (row+col)%2 == 0
			case FillRandom:
				on = d.fillRand.Intn(2) == 1
			}

			c := Cell{
				Offset: [2]float64{d.CheckSize[0] * float64(col), d.CheckSize[1] * float64(row)},
				Color:  [4]float64{-1, -1, -1, 1},
				On:     on,
			}
			if on {
				c.Color[d.ContrastChannel] = high
			} else {
				c.Color[d.ContrastChannel] = low
			}
			b.Cells = append(b.Cells, c)
		}
	}
	return b, nil
}
