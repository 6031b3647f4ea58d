package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anime-shed/leaf-health-go/internal/catalog"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the model catalog",
	Long: `List every model in the catalog with its artifact path and whether the
artifact is present on disk. Nothing is loaded.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load(cfg.ModelCatalogFile, cfg.ModelFolder)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCLASSES\tINPUT\tARTIFACT\tPRESENT")
	for _, d := range cat.Descriptors() {
		_, statErr := os.Stat(d.ArtifactPath)
		fmt.Fprintf(w, "%s\t%s\t%d\t%dx%d\t%s\t%t\n",
			d.ID, d.Name, d.ClassCount(), d.InputSize.Width, d.InputSize.Height, d.ArtifactPath, statErr == nil)
	}
	return w.Flush()
}
