package main

import (
	"context"
	"fmt"
	"time"

	"kalam-backend/internal/audit"
	"kalam-backend/internal/gateway"
	"kalam-backend/internal/notify"
	"kalam-backend/internal/services"

	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Settle payments stuck in CREATED by asking the gateway",
		Long: `Query the gateway for every payment left CREATED longer than
--older-than and apply the settled ones exactly as a callback would.

Examples:
  kalamctl reconcile
  kalamctl reconcile --older-than 2h --limit 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repo, err := connect()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var recorder audit.Recorder = audit.Nop{}
			if cfg.MongoURI != "" {
				store, err := audit.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
				if err != nil {
					return err
				}
				defer func() {
					closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = store.Close(closeCtx)
				}()
				recorder = store
			}

			var mailer notify.Mailer = notify.LogMailer{}
			if cfg.SMTPHost != "" {
				mailer = notify.NewSMTPMailer(cfg)
			}
			orders := services.NewOrderService(repo, cfg, notify.DirectPublisher{Mailer: mailer})
			payments := services.NewPaymentService(repo, cfg, gateway.NewPayU(cfg), orders, recorder)

			report, err := payments.Reconcile(ctx, olderThan, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d, updated %d, errors %d\n", report.Checked, report.Updated, report.Errors)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*time.Minute, "only payments initiated before now minus this")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum payments to check")
	return cmd
}
