package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ispcrm/internal/config"
	"ispcrm/internal/database"
	"ispcrm/internal/domain/billing"
	"ispcrm/internal/domain/contract"
	"ispcrm/internal/domain/invoice"
	"ispcrm/internal/domain/notification"
	"ispcrm/internal/domain/renewal"
)

// sweep runs the periodic jobs once and exits, for cron-style
// deployments where the in-process scheduler is disabled.
func main() {
	root := &cobra.Command{
		Use:          "sweep",
		Short:        "Run billing lifecycle jobs once",
		SilenceUsage: true,
	}

	var asOf string
	root.PersistentFlags().StringVar(&asOf, "as-of", "", "evaluate as of this date (YYYY-MM-DD, default: now)")

	now := func() (time.Time, error) {
		if asOf == "" {
			return time.Now().UTC(), nil
		}
		return time.Parse("2006-01-02", asOf)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "generate",
			Short: "Generate invoices for all due billing periods",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withJobs(now, func(ctx context.Context, jobs *jobSet, at time.Time) error {
					n, err := jobs.generator.GenerateDue(ctx, at)
					if err != nil {
						return err
					}
					fmt.Printf("invoices created: %d\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "overdue",
			Short: "Mark overdue invoices and apply late fees",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withJobs(now, func(ctx context.Context, jobs *jobSet, at time.Time) error {
					n, err := jobs.reconciler.SweepOverdue(ctx, at)
					if err != nil {
						return err
					}
					fmt.Printf("invoices marked overdue: %d\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "renew",
			Short: "Evaluate contracts entering their renewal window",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withJobs(now, func(ctx context.Context, jobs *jobSet, at time.Time) error {
					n, err := jobs.renewals.Evaluate(ctx, at)
					if err != nil {
						return err
					}
					fmt.Printf("contracts processed: %d\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Run generation, overdue sweep and renewal evaluation in order",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withJobs(now, func(ctx context.Context, jobs *jobSet, at time.Time) error {
					generated, err := jobs.generator.GenerateDue(ctx, at)
					if err != nil {
						return err
					}
					overdue, err := jobs.reconciler.SweepOverdue(ctx, at)
					if err != nil {
						return err
					}
					renewed, err := jobs.renewals.Evaluate(ctx, at)
					if err != nil {
						return err
					}
					fmt.Printf("invoices created: %d\ninvoices marked overdue: %d\ncontracts processed: %d\n", generated, overdue, renewed)
					return nil
				})
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type jobSet struct {
	generator  *billing.Generator
	reconciler *invoice.Reconciler
	renewals   *renewal.Manager
}

func withJobs(now func() (time.Time, error), fn func(ctx context.Context, jobs *jobSet, at time.Time) error) error {
	at, err := now()
	if err != nil {
		return fmt.Errorf("invalid --as-of date: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	tolerance, err := decimal.NewFromString(cfg.OverpaymentTolerance)
	if err != nil {
		return fmt.Errorf("invalid OVERPAYMENT_TOLERANCE %q", cfg.OverpaymentTolerance)
	}

	contractRepo := contract.NewRepository(db)
	invoiceRepo := invoice.NewRepository(db)
	notifier := notification.NewService(notification.NewRepository(db), nil, log.Printf)

	jobs := &jobSet{
		generator: billing.NewGenerator(db, contractRepo, invoiceRepo, billing.GeneratorConfig{
			DefaultCurrency: cfg.DefaultCurrency,
		}, log.Printf),
		reconciler: invoice.NewReconciler(invoiceRepo, invoice.ReconcilerConfig{
			OverpaymentTolerance: tolerance,
		}, log.Printf),
		renewals: renewal.NewManager(db, contractRepo, notifier, renewal.ManagerConfig{
			LeadDays: cfg.RenewalLeadDays,
		}, log.Printf),
	}

	return fn(context.Background(), jobs, at)
}
