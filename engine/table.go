package engine

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TableEntry is one row of a coordinate table: a radial distance from the
// window center in microns and whether the frame showing it should pulse
// the trigger line.
type TableEntry struct {
	Radius  float64
	Trigger bool
}

// LoadTable reads a coordinate table. Two source formats are supported:
// whitespace-delimited text ("radius flag" per line), where the first and
// last entries are always trigger-flagged, and Igor binary waves (.ibw),
// where only the first coordinate triggers. Anything else is a
// DataFormatError.
func LoadTable(path string) ([]TableEntry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return loadTextTable(path)
	case ".ibw":
		return loadIgorWave(path)
	}
	return nil, &DataFormatError{Path: path, Reason: "unsupported table format"}
}

func loadTextTable(path string) ([]TableEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataFormatError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	var entries []TableEntry
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, &DataFormatError{
				Path:   path,
				Reason: fmt.Sprintf("line %d: want 'radius flag'", lineNo),
			}
		}
		radius, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, &DataFormatError{
				Path:   path,
				Reason: fmt.Sprintf("line %d: invalid radius: %v", lineNo, err),
			}
		}
		flag, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, &DataFormatError{
				Path:   path,
				Reason: fmt.Sprintf("line %d: invalid trigger flag: %v", lineNo, err),
			}
		}
		entries = append(entries, TableEntry{Radius: radius, Trigger: flag != 0})
	}
	if err := sc.Err(); err != nil {
		return nil, &DataFormatError{Path: path, Reason: err.Error()}
	}
	if len(entries) == 0 {
		return nil, &DataFormatError{Path: path, Reason: "table is empty"}
	}

	// first and last coordinates always trigger for text tables
	entries[0].Trigger = true
	entries[len(entries)-1].Trigger = true
	return entries, nil
}

// Igor binary wave constants (version-5 container).
const (
	ibwBinHeader5Size  = 64
	ibwWaveHeader5Size = 320
	ibwNpntsOffset     = 12 // within WaveHeader5
	ibwTypeOffset      = 16

	ibwTypeFP32 = 2
	ibwTypeFP64 = 4
)

// loadIgorWave reads the wave data of a version-5 Igor binary wave. The
// byte order is probed from the version field; float32 and float64 waves
// are accepted.
func loadIgorWave(path string) ([]TableEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataFormatError{Path: path, Reason: err.Error()}
	}
	if len(data) < ibwBinHeader5Size+ibwWaveHeader5Size {
		return nil, &DataFormatError{Path: path, Reason: "file too short for an Igor wave"}
	}

	var order binary.ByteOrder = binary.LittleEndian
	version := int16(order.Uint16(data))
	if version < 1 || version > 5 {
		order = binary.BigEndian
		version = int16(order.Uint16(data))
	}
	if version != 5 {
		return nil, &DataFormatError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported Igor wave version %d", version),
		}
	}

	wave := data[ibwBinHeader5Size:]
	npnts := int(int32(order.Uint32(wave[ibwNpntsOffset:])))
	dtype := int16(order.Uint16(wave[ibwTypeOffset:]))
	if npnts <= 0 {
		return nil, &DataFormatError{Path: path, Reason: "wave has no points"}
	}

	raw := data[ibwBinHeader5Size+ibwWaveHeader5Size:]
	entries := make([]TableEntry, npnts)
	switch dtype {
	case ibwTypeFP32:
		if len(raw) < npnts*4 {
			return nil, &DataFormatError{Path: path, Reason: "truncated wave data"}
		}
		for i := 0; i < npnts; i++ {
			bits := order.Uint32(raw[i*4:])
			entries[i].Radius = float64(math.Float32frombits(bits))
		}
	case ibwTypeFP64:
		if len(raw) < npnts*8 {
			return nil, &DataFormatError{Path: path, Reason: "truncated wave data"}
		}
		for i := 0; i < npnts; i++ {
			entries[i].Radius = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	default:
		return nil, &DataFormatError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported wave data type %d", dtype),
		}
	}

	// binary waves carry coordinates only; trigger on the first
	entries[0].Trigger = true
	return entries, nil
}
