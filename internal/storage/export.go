package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/chaoslab/dpsim/internal/dynamo"
	"github.com/chaoslab/dpsim/internal/frames"
)

// ExportData is the JSON hand-off for external plotting consumers: plain
// ordered sequences of numeric tuples, nothing renderer-specific.
type ExportData struct {
	Params     interface{}        `json:"params"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Samples    int                `json:"samples"`
	Times      []float64          `json:"times"`
	States     [][]float64        `json:"states"`
	Frames     []frames.Frame     `json:"frames,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

func ExportJSON(w io.Writer, meta *RunMetadata, states []dynamo.State, times []float64, fs []frames.Frame) error {
	data := ExportData{
		Params:     meta.Params,
		Dt:         meta.Dt,
		Duration:   meta.Duration,
		Integrator: meta.Integrator,
		Samples:    len(times),
		Times:      times,
		States:     make([][]float64, len(states)),
		Frames:     fs,
		Metrics:    meta.Metrics,
	}
	for i, s := range states {
		data.States[i] = s
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV writes time, state, and bob/joint positions as one row per
// sample.
func ExportCSV(w io.Writer, states []dynamo.State, times []float64, fs []frames.Frame) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"time", "theta1", "omega1", "theta2", "omega2", "x1", "y1", "x2", "y2", "energy"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range states {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(times[i], 'f', 6, 64))
		for _, val := range states[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if i < len(fs) {
			f := fs[i]
			for _, val := range []float64{f.X1, f.Y1, f.X2, f.Y2, f.Energy} {
				row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	return nil
}
