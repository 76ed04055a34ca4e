package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sebiscope/sebiscope/internal/server"
	"github.com/sebiscope/sebiscope/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		if listenAddr == "" {
			listenAddr = viper.GetString("server.listen")
		}

		db, err := storage.Open(viper.GetString("db.path"))
		if err != nil {
			return err
		}
		defer db.Close()

		srv := server.New(
			db,
			viper.GetString("data.dir"),
			proxyFlag(),
			viper.GetString("server.username"),
			viper.GetString("server.password"),
		)
		return srv.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "HTTP listen address (default from config server.listen)")
}
