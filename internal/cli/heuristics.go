package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anime-shed/leaf-health-go/internal/analyzer"
	"github.com/anime-shed/leaf-health-go/internal/factory"
	"github.com/anime-shed/leaf-health-go/internal/recommendation"
)

var heuristicsBackend string

var heuristicsCmd = &cobra.Command{
	Use:   "heuristics <image>...",
	Short: "Estimate leaf area index and disease severity",
	Long: `Run only the colour heuristics, without a classifier.

Examples:
  leafctl heuristics leaf.jpg
  leafctl heuristics --backend gocv a.jpg b.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHeuristics,
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <class>",
	Short: "Print the treatment text for a class label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := recommendation.Load(cfg.TreatmentsFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resolver.Resolve(args[0]))
		return nil
	},
}

func init() {
	heuristicsCmd.Flags().StringVarP(&heuristicsBackend, "backend", "b", "", "segmentation backend (native or gocv; defaults to HEURISTIC_BACKEND)")
}

type heuristicsRow struct {
	File string `json:"file"`
	analyzer.Estimates
	Backend string `json:"backend"`
}

func runHeuristics(cmd *cobra.Command, args []string) error {
	backend := heuristicsBackend
	if backend == "" {
		backend = cfg.HeuristicBackend
	}
	opts := analyzer.DefaultHeuristicOptions()
	a := analyzer.NewHeuristicAnalyzer(factory.CreateSegmenter(backend, opts), opts)

	rows := make([]heuristicsRow, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, heuristicsRow{File: path, Estimates: a.EstimateBytes(data), Backend: a.Backend()})
	}
	return printJSON(cmd.OutOrStdout(), rows)
}
