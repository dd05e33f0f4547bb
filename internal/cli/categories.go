package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reviewcat/config"
	"reviewcat/internal/adapter/store"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Inspect and maintain the category set",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all categories with their exemplar counts",
	RunE:  runCategoriesList,
}

var categoriesConsolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge near-duplicate categories",
	Long: `Compare exemplar-embedding centroids of every category pair and merge
those above the consolidation threshold. The newer category folds into the
older one. This keeps LLM-discovered near-duplicates like "Delivery partner
rude" and "Delivery person impolite" from accumulating.`,
	RunE: runCategoriesConsolidate,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.AddCommand(categoriesListCmd)
	categoriesCmd.AddCommand(categoriesConsolidateCmd)
}

func runCategoriesList(cmd *cobra.Command, args []string) error {
	// Listing is read-only; open the store directly without the pipeline.
	catStore, err := store.NewBoltCategoryStore(cfg.StoreDBPath(rootDir))
	if err != nil {
		return fmt.Errorf("failed to open category store: %w", err)
	}
	defer catStore.Close()

	cats, err := catStore.List()
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		fmt.Println("No categories yet. Run 'reviewcat categorize' first.")
		return nil
	}

	fmt.Printf("%d categories:\n", len(cats))
	for _, cat := range cats {
		origin := "seed"
		if cat.Dynamic {
			origin = "discovered"
		}
		fmt.Printf("  %-40s %-8s %-10s %d exemplars\n", cat.Name, cat.Sentiment, origin, len(cat.Exemplars))
	}
	return nil
}

func runCategoriesConsolidate(cmd *cobra.Command, args []string) error {
	if err := config.EnsureDataDir(rootDir); err != nil {
		return err
	}

	cat, cleanup, err := buildCategorizer()
	if err != nil {
		return err
	}
	defer cleanup()

	merged, err := cat.Consolidate(context.Background())
	if err != nil {
		return fmt.Errorf("consolidation failed: %w", err)
	}

	if merged == 0 {
		fmt.Println("No categories merged.")
	} else {
		fmt.Printf("Merged %d categories.\n", merged)
	}
	return nil
}
