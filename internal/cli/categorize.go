package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"reviewcat/internal/adapter/reviews"
	"reviewcat/internal/domain"
	"reviewcat/internal/usecase"
)

var (
	categorizeDate string
	categorizeGlob string
	categorizeJSON bool
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Classify reviews for a date and report per-category counts",
	Long: `Load reviews from the configured CSV files and classify each one through
the three-tier pipeline.

Examples:
  reviewcat categorize --date 2024-03-15
  reviewcat categorize --date 2024-03 --json`,
	RunE: runCategorize,
}

func init() {
	rootCmd.AddCommand(categorizeCmd)
	categorizeCmd.Flags().StringVar(&categorizeDate, "date", "", "date key filter, e.g. 2024-03-15 or 2024-03 (empty = all)")
	categorizeCmd.Flags().StringVar(&categorizeGlob, "glob", "", "review file glob (default from config)")
	categorizeCmd.Flags().BoolVar(&categorizeJSON, "json", false, "output per-review results as JSON")
}

func runCategorize(cmd *cobra.Command, args []string) error {
	glob := cfg.Reviews.Glob
	if categorizeGlob != "" {
		glob = categorizeGlob
	}

	source := reviews.NewCSVSource(rootDir, glob, cfg.Reviews.TextColumn, cfg.Reviews.DateColumn)
	revs, err := source.Load(categorizeDate)
	if err != nil {
		return fmt.Errorf("failed to load reviews: %w", err)
	}
	if len(revs) == 0 {
		fmt.Println("No reviews found.")
		return nil
	}

	cat, cleanup, err := buildCategorizer()
	if err != nil {
		return err
	}
	defer cleanup()

	bar := progressbar.NewOptions(len(revs),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Classifying[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	results := cat.CategorizeAll(context.Background(), revs, func(done, total int) {
		bar.Set(done)
	})

	if categorizeJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printSummary(results)
	return nil
}

func printSummary(results []domain.Result) {
	counts := usecase.Counts(results)

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	tiers := make(map[domain.Tier]int)
	newCategories := 0
	for _, r := range results {
		tiers[r.Tier]++
		if r.NewCategory {
			newCategories++
		}
	}

	fmt.Printf("\nClassified %d reviews:\n", len(results))
	for _, name := range names {
		fmt.Printf("  %-40s %d\n", name, counts[name])
	}

	fmt.Printf("\nTiers: vector=%d llm=%d pattern=%d\n",
		tiers[domain.TierVector], tiers[domain.TierLLM], tiers[domain.TierPattern])
	if newCategories > 0 {
		fmt.Printf("New categories discovered: %d\n", newCategories)
	}
}
