package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sebiscope/sebiscope/pkg/artifact"
	"github.com/sebiscope/sebiscope/pkg/catalog"
	"github.com/sebiscope/sebiscope/pkg/storage"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <company name>",
	Short: "Resolve a company's filing and download the validated PDF",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		company := strings.Join(args, " ")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		outDir, _ := cmd.Flags().GetString("out")
		if outDir == "" {
			outDir = viper.GetString("data.dir")
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := catalog.ResolveDocument(ctx, company, proxyFlag())
		if err != nil {
			return err
		}
		if err := recordResolution(ctx, company, result); err != nil {
			return err
		}

		if !result.Found {
			printResolution(result)
			return fmt.Errorf("no eligible filing for %q", company)
		}
		printResolution(result)

		outcome, err := artifact.AcquireArtifact(ctx, result.Match.LandingURL, company, outDir, proxyFlag())
		if err != nil {
			return err
		}
		if !outcome.Saved {
			return fmt.Errorf("download failed after %d attempt(s): %s", outcome.Attempts, outcome.Reason)
		}

		db, err := storage.Open(viper.GetString("db.path"))
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.RecordArtifact(ctx, storage.Artifact{
			Company:     company,
			LandingURL:  result.Match.LandingURL,
			ResolvedURL: outcome.ResolvedURL,
			Path:        outcome.Path,
			SizeBytes:   outcome.SizeBytes,
			Attempts:    outcome.Attempts,
		}); err != nil {
			return err
		}

		fmt.Printf("Saved %s (%d bytes)\n", outcome.Path, outcome.SizeBytes)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().String("out", "", "Output directory (default from config data.dir)")
	fetchCmd.Flags().Duration("timeout", 10*time.Minute, "Overall fetch timeout")
}
