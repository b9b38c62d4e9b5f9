// Command stockctl performs warehouse chores against the ledger without
// going through the HTTP API: recording receipts, managing containers,
// exporting balances and issuing bearer tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	stockapp "github.com/marmoleria/backend/internal/application/stock"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/marmoleria/backend/internal/infrastructure/auth"
	"github.com/marmoleria/backend/internal/infrastructure/catalogfile"
	"github.com/marmoleria/backend/internal/infrastructure/config"
	"github.com/marmoleria/backend/internal/infrastructure/logger"
	"github.com/marmoleria/backend/internal/infrastructure/persistence"
	"github.com/marmoleria/backend/internal/infrastructure/report"
)

var (
	logLevel string
	log      *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:           "stockctl",
		Short:         "Marmoleria stock ledger tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logger.New(&logger.Config{
				Level:      logLevel,
				Format:     "console",
				Output:     "stderr",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return err
			}
			log = l
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(receiveCmd(), containerCmd(), exportCmd(), tokenCmd())

	err := root.Execute()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "stockctl:", err)
		os.Exit(1)
	}
}

// withStock opens the database, loads the ledger and hands a stock service to run
func withStock(ctx context.Context, run func(*stockapp.StockService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{Logger: log})
	if err != nil {
		return err
	}
	defer db.Close()

	cat, err := catalogfile.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	policy, err := stock.ParseEligibilityPolicy(cfg.Ledger.EligibleContainerStatuses)
	if err != nil {
		return err
	}
	ledger := stock.NewLedger(persistence.NewGormStockStore(db.DB),
		stock.WithEligibilityPolicy(policy),
		stock.WithLocker(stock.NewKeyedLocker(cfg.Ledger.LockTimeout)),
	)
	if err := ledger.Load(ctx); err != nil {
		return err
	}

	svc := stockapp.NewStockService(ledger, cat, log)
	svc.SetExporter(report.NewXLSXExporter())
	return run(svc)
}

func receiveCmd() *cobra.Command {
	var sourceID string
	cmd := &cobra.Command{
		Use:   "receive <WAREHOUSE|FREE_ZONE|CONTAINER> <reference> <quantity>",
		Short: "Record goods arriving at a source",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[2])
			}
			return withStock(cmd.Context(), func(svc *stockapp.StockService) error {
				bal, err := svc.ReceiveStock(cmd.Context(), stockapp.ReceiveStockRequest{
					SourceType: args[0],
					SourceID:   sourceID,
					Reference:  args[1],
					Quantity:   qty,
				})
				if err != nil {
					return err
				}
				log.Info("Stock received",
					zap.String("source", bal.Key.String()),
					zap.String("reference", args[1]),
					zap.String("quantity", qty.String()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sourceID, "id", "", "container id, required for CONTAINER")
	return cmd
}

func containerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "container",
		Short: "Register or advance import containers",
	}

	var carrier, status, eta string
	register := &cobra.Command{
		Use:   "register <id>",
		Short: "Announce a new container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := time.Parse(time.DateOnly, eta)
			if err != nil {
				return fmt.Errorf("invalid --eta %q, want YYYY-MM-DD", eta)
			}
			return withStock(cmd.Context(), func(svc *stockapp.StockService) error {
				c, err := svc.RegisterContainer(cmd.Context(), stockapp.RegisterContainerRequest{
					ID: args[0], Carrier: carrier, ETA: when, Status: status,
				})
				if err != nil {
					return err
				}
				log.Info("Container registered", zap.String("id", c.ID), zap.String("status", c.Status), zap.Bool("eligible", c.Eligible))
				return nil
			})
		},
	}
	register.Flags().StringVar(&carrier, "carrier", "", "shipping line")
	register.Flags().StringVar(&eta, "eta", "", "estimated arrival, YYYY-MM-DD")
	register.Flags().StringVar(&status, "status", "", "initial status, defaults to IN_PRODUCTION")
	_ = register.MarkFlagRequired("eta")

	advance := &cobra.Command{
		Use:   "advance <id> <status>",
		Short: "Move a container to its next status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStock(cmd.Context(), func(svc *stockapp.StockService) error {
				c, err := svc.AdvanceContainer(cmd.Context(), args[0], stockapp.AdvanceContainerRequest{Status: args[1]})
				if err != nil {
					return err
				}
				log.Info("Container advanced", zap.String("id", c.ID), zap.String("status", c.Status), zap.Bool("eligible", c.Eligible))
				return nil
			})
		},
	}

	cmd.AddCommand(register, advance)
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every source balance to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			return withStock(cmd.Context(), func(svc *stockapp.StockService) error {
				if err := svc.ExportWorkbook(cmd.Context(), f); err != nil {
					return err
				}
				log.Info("Stock exported", zap.String("file", out))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "stock.xlsx", "output file")
	return cmd
}

func tokenCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "token <ADVISOR|ACCOUNTING|ADMIN> <subject>",
		Short: "Issue a bearer token signed with the configured secret",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			role, err := reservation.ParseRole(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = args[1]
			}
			tok, err := auth.NewJWTService(cfg.JWT).Issue(role, args[1], name)
			if err != nil {
				return err
			}
			log.Info("Token issued", zap.String("id", tok.ID), zap.Time("expires_at", tok.ExpiresAt))
			fmt.Println(tok.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "advisor display name, defaults to the subject")
	return cmd
}
