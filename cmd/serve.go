package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload, cleaning and view workflow as a JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		trainer, err := newTrainer()
		if err != nil {
			return err
		}

		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := server.New(st, trainer, logger, server.Options{
			UserID:         c.UserID,
			MaxUploadBytes: int64(c.MaxUploadMB) << 20,
			ParseTimeout:   time.Duration(c.ParseTimeoutSec) * time.Second,
			PageSize:       c.PageSize,
			CORSOrigins:    c.CORSOrigins,
		})
		logger.Info("store opened",
			zap.String("driver", c.StoreDriver),
			zap.String("trainer", trainer.Name()))
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on http://%s\n", addr)
		return srv.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}
