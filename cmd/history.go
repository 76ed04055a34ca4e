package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sebiscope/sebiscope/pkg/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded resolutions and downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		showArtifacts, _ := cmd.Flags().GetBool("artifacts")

		db, err := storage.Open(viper.GetString("db.path"))
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()

		if showArtifacts {
			artifacts, err := db.ListArtifacts(ctx, limit)
			if err != nil {
				return err
			}
			for _, a := range artifacts {
				fmt.Printf("%s  %s  %d bytes  attempts=%d  %s\n",
					a.CreatedAt.Format("2006-01-02 15:04"), a.Company, a.SizeBytes, a.Attempts, a.Path)
			}
			return nil
		}

		resolutions, err := db.ListResolutions(ctx, limit)
		if err != nil {
			return err
		}
		for _, r := range resolutions {
			if r.Found {
				fmt.Printf("%s  %s  -> %s [%s] score=%.4f pages=%d\n",
					r.CreatedAt.Format("2006-01-02 15:04"), r.Company, r.MatchedTitle, r.DocType, r.Score, r.PagesScanned)
			} else {
				fmt.Printf("%s  %s  -> not found (pages=%d)\n",
					r.CreatedAt.Format("2006-01-02 15:04"), r.Company, r.PagesScanned)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 50, "Maximum rows to print")
	historyCmd.Flags().Bool("artifacts", false, "List downloaded artifacts instead of resolutions")
}
