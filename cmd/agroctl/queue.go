package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mavuno/agrolink/internal/clock"
	"github.com/mavuno/agrolink/internal/config"
	"github.com/mavuno/agrolink/internal/connectivity"
	"github.com/mavuno/agrolink/internal/diagnosis"
	"github.com/mavuno/agrolink/internal/domain"
	"github.com/mavuno/agrolink/internal/notifier"
	"github.com/mavuno/agrolink/internal/queue"
	"github.com/mavuno/agrolink/internal/ratelimiter"
	"github.com/mavuno/agrolink/internal/repository"
	"github.com/mavuno/agrolink/internal/service"
)

type queueOptions struct {
	dbPath string
	key    string
}

func newQueueCmd(opts *rootOptions) *cobra.Command {
	qo := &queueOptions{}
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect or drain a local offline queue",
	}
	cmd.PersistentFlags().StringVar(&qo.dbPath, "db", "agrolink-queue.db", "queue SQLite file")
	cmd.PersistentFlags().StringVar(&qo.key, "key", "diagnosis_queue", "queue key")

	cmd.AddCommand(newQueueStatusCmd(opts, qo), newQueueDrainCmd(opts, qo))
	return cmd
}

func newQueueStatusCmd(opts *rootOptions, qo *queueOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending items without processing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(qo.dbPath); err != nil {
				return fmt.Errorf("queue file: %w", err)
			}
			store, err := queue.OpenSQLiteStore(qo.dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := queue.Snapshot[domain.DiagnosisSubmission](cmd.Context(), store, qo.key)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"key": qo.key, "pending": len(items), "items": items})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d pending\n", qo.key, len(items))
			if len(items) == 0 {
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ITEM\tCLIENT\tQUEUED\tIMAGE")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s (%d bytes)\n",
					it.ID, it.Payload.ClientID, it.EnqueuedAt.Format("2006-01-02 15:04:05"),
					it.Payload.Image.MIMEType, len(it.Payload.Image.Data))
			}
			return tw.Flush()
		},
	}
}

func newQueueDrainCmd(opts *rootOptions, qo *queueOptions) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Replay pending diagnoses once against the diagnosis model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := opts.logger()

			store, err := queue.OpenSQLiteStore(qo.dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			var d diagnosis.Diagnoser = diagnosis.Unavailable{}
			if cfg.GeminiAPIKey != "" {
				g, err := diagnosis.NewGenAIDiagnoser(ctx, diagnosis.GenAIConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
				if err != nil {
					return err
				}
				d = g
			}

			net := connectivity.NewSwitch(!offline)
			svc := service.NewDiagnosisService(d, repository.NewMemoryCaseRepository(), ratelimiter.New(cfg.DiagnosisRatePerSec),
				notifier.NopNotifier{}, net, clock.Real{}, logger)
			q := queue.New[domain.DiagnosisSubmission](qo.key, store, svc.Process, net, logger, queue.Hooks{})
			svc.Bind(q)

			before := q.Len()
			q.ProcessQueue(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: processed %d, %d pending\n", qo.key, before-q.Len(), q.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "treat the network as down (nothing is processed)")
	return cmd
}
