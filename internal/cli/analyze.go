package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anime-shed/leaf-health-go/internal/container"
	"github.com/anime-shed/leaf-health-go/internal/service"
)

var analyzeModel string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze a leaf photograph",
	Long: `Load one classifier and print the full analysis result as JSON.

Examples:
  leafctl analyze leaf.jpg
  leafctl analyze leaf.jpg --model model3`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeModel, "model", "m", "", "model id (defaults to DEFAULT_MODEL)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	c, err := container.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	modelID := analyzeModel
	if modelID == "" {
		modelID = cfg.DefaultModel
	}
	if err := c.Registry().Load(ctx, modelID); err != nil {
		return fmt.Errorf("load model %s: %w", modelID, err)
	}

	result, err := c.Service().Analyze(ctx, service.AnalyzeRequest{
		Filename: filepath.Base(path),
		Data:     data,
		ModelID:  modelID,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}
