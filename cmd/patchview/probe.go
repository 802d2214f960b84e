package main

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/recera/patchview/internal/source"
	"github.com/recera/patchview/pkg/explorer"
	"github.com/recera/patchview/pkg/figure"
	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/json"
	"github.com/recera/patchview/pkg/refresh"
)

// probeResult is the JSON form of one probe
type probeResult struct {
	Position grid.Coordinate `json:"position"`
	Offset   int             `json:"offset"`
	Fallback bool            `json:"fallback"`
	Reason   string          `json:"reason,omitempty"`
	Channels []windowStats   `json:"channels"`
}

type windowStats struct {
	Samples int     `json:"samples"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
}

func newProbeCommand(a *app) *cobra.Command {
	var x, y int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Print the signal window for one grid cell",
		Long:  `Runs one refresh at the given cell against the configured signal files and prints the patch offset and window statistics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := grid.Coordinate{X: x, Y: y}
			if !c.In(grid.Default) {
				return fmt.Errorf("cell %s is outside the %dx%d grid", c, grid.Width, grid.Height)
			}

			loader := a.loader()
			if err := loader.Load(); err != nil {
				return err
			}

			res := probe(a.cfg.ExplorerOptions(), loader, c)
			if asJSON {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			printProbe(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().IntVar(&x, "x", grid.Center.X, "Grid column")
	cmd.Flags().IntVar(&y, "y", grid.Center.Y, "Grid row")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

// probe publishes c into a fresh explorer and runs one refresh
func probe(opts explorer.Options, data source.Provider, c grid.Coordinate) probeResult {
	ex := explorer.New(&opts)
	defer ex.Close()
	ex.Store().Publish(c)

	buffer, metadata := data.Data()
	out := ex.Refresh(refresh.Input{Tick: 1, SignalBuffer: buffer, FileMetadata: metadata})

	res := probeResult{
		Position: out.Position,
		Offset:   out.Offset,
		Fallback: out.Fallback,
		Channels: make([]windowStats, len(out.Signals)),
	}
	if out.Reason != nil {
		res.Reason = out.Reason.Error()
	}
	for i, f := range out.Signals {
		res.Channels[i] = statsOf(f)
	}
	return res
}

func statsOf(f figure.Figure) windowStats {
	if len(f.Data) == 0 || len(f.Data[0].Y) == 0 {
		return windowStats{}
	}
	y := f.Data[0].Y
	s := windowStats{Samples: len(y), Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range y {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		sum += v
	}
	s.Mean = sum / float64(len(y))
	return s
}

func printProbe(w io.Writer, res probeResult) {
	fmt.Fprintf(w, "position  %s\n", res.Position)
	fmt.Fprintf(w, "offset    %d\n", res.Offset)
	if res.Fallback {
		fmt.Fprintf(w, "fallback  %s\n", res.Reason)
	}
	for i, s := range res.Channels {
		fmt.Fprintf(w, "signal_%d  samples=%d min=%g max=%g mean=%g\n", i, s.Samples, s.Min, s.Max, s.Mean)
	}
}
