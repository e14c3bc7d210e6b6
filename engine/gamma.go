package engine

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// TableGamma corrects color values through per-channel monotone lookup
// tables measured during monitor calibration. Values between samples are
// linearly interpolated; the fitting procedure that produces the tables is
// outside this program.
type TableGamma struct {
	profile string

	// in ascending input order; one slice per RGB channel
	in  [3][]float64
	out [3][]float64
}

// Profile is the calibration profile name the tables were loaded under.
func (g *TableGamma) Profile() string { return g.profile }

func (g *TableGamma) Correct(v float64, channel int) float64 {
	in, out := g.in[channel], g.out[channel]
	if len(in) == 0 {
		return v
	}
	i := sort.SearchFloat64s(in, v)
	if i == 0 {
		return out[0]
	}
	if i >= len(in) {
		return out[len(out)-1]
	}
	t := (v - in[i-1]) / (in[i] - in[i-1])
	return out[i-1] + t*(out[i]-out[i-1])
}

// LoadGammaTables reads the calibration table file. The format is one
// profile per block:
//
//	[profileName]
//	channel in out
//
// with channel in {red, green, blue} and in/out in [-1, 1]. Returns a map
// keyed by profile name.
func LoadGammaTables(path string) (map[string]*TableGamma, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tables := make(map[string]*TableGamma)
	var cur *TableGamma

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			cur = &TableGamma{profile: strings.Trim(line, "[]")}
			tables[cur.profile] = cur
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("%s line %d: sample before profile header", path, lineNo)
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s line %d: want 'channel in out'", path, lineNo)
		}
		ch, err := ParseChannel(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %v", path, lineNo, err)
		}
		in, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %v", path, lineNo, err)
		}
		out, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %v", path, lineNo, err)
		}
		cur.in[ch] = append(cur.in[ch], in)
		cur.out[ch] = append(cur.out[ch], out)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, t := range tables {
		for ch := 0; ch < 3; ch++ {
			if !sort.Float64sAreSorted(t.in[ch]) {
				return nil, fmt.Errorf("%s: samples must be in ascending input order", path)
			}
		}
	}
	return tables, nil
}

// GammaForProfile resolves the configured profile name against a tables
// file. The "default" profile or an empty path means no correction.
func GammaForProfile(cfg *Config, tablesPath string) (Gamma, error) {
	if cfg.GammaProfile == "" || cfg.GammaProfile == "default" || tablesPath == "" {
		return nil, nil
	}
	tables, err := LoadGammaTables(tablesPath)
	if err != nil {
		return nil, err
	}
	g, ok := tables[cfg.GammaProfile]
	if !ok {
		return nil, fmt.Errorf("gamma profile %q not found in %s", cfg.GammaProfile, tablesPath)
	}
	return g, nil
}
