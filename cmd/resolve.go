package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sebiscope/sebiscope/pkg/catalog"
	"github.com/sebiscope/sebiscope/pkg/storage"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <company name>",
	Short: "Find the primary RHP/DRHP filing for a company",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		company := strings.Join(args, " ")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		asJSON, _ := cmd.Flags().GetBool("json")
		record, _ := cmd.Flags().GetBool("record")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := catalog.ResolveDocument(ctx, company, proxyFlag())
		if err != nil {
			return err
		}

		if record {
			if err := recordResolution(ctx, company, result); err != nil {
				return err
			}
		}

		if asJSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}

		printResolution(result)
		return nil
	},
}

func printResolution(result catalog.ResolutionResult) {
	if result.Found {
		fmt.Printf("Matched: %s\n", result.Match.RawTitle)
		fmt.Printf("  type:  %s\n", result.Match.DocType)
		fmt.Printf("  score: %.4f\n", result.Match.Score)
		fmt.Printf("  url:   %s\n", result.Match.LandingURL)
		fmt.Printf("  pages scanned: %d\n", result.PagesScanned)
		return
	}

	fmt.Printf("No eligible RHP/DRHP found for %q (%d pages scanned).\n", result.Query, result.PagesScanned)
	if len(result.Alternatives) > 0 {
		fmt.Println("Closest titles:")
		for _, alt := range result.Alternatives {
			fmt.Printf("  %.4f  [%s]  %s\n", alt.Score, alt.DocType, alt.Title)
		}
	}
}

func recordResolution(ctx context.Context, company string, result catalog.ResolutionResult) error {
	db, err := storage.Open(viper.GetString("db.path"))
	if err != nil {
		return err
	}
	defer db.Close()

	rec := storage.Resolution{
		Company:         company,
		NormalizedQuery: catalog.NewMatchQuery(company).NormalizedName,
		Found:           result.Found,
		PagesScanned:    result.PagesScanned,
		UniqueTitles:    result.UniqueTitles,
	}
	if result.Found {
		rec.MatchedTitle = result.Match.RawTitle
		rec.DocType = string(result.Match.DocType)
		rec.Score = result.Match.Score
		rec.LandingURL = result.Match.LandingURL
	}
	return db.RecordResolution(ctx, rec)
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().Bool("json", false, "Print the result as JSON")
	resolveCmd.Flags().Bool("record", false, "Record the resolution in the local history database")
	resolveCmd.Flags().Duration("timeout", 2*time.Minute, "Overall resolution timeout")
}
