package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/fwallner/kest/internal/config"
	"github.com/fwallner/kest/internal/database"
	"github.com/fwallner/kest/internal/domain"
	"github.com/fwallner/kest/internal/ledger"
	"github.com/fwallner/kest/internal/rates"
	"github.com/fwallner/kest/internal/report"
	"github.com/fwallner/kest/internal/tax"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "kest",
		Usage: "Austrian capital-gains tax calculator for fund and stock holdings",
		Commands: []*cli.Command{
			calculateCommand(),
			convertCommand(),
			ratesCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func calculateCommand() *cli.Command {
	return &cli.Command{
		Name:  "calculate",
		Usage: "Calculate tax figures from a securities config and a transaction ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "securities config file (JSON)", Required: true},
			&cli.StringFlag{Name: "transactions", Aliases: []string{"t"}, Usage: "transaction ledger (CSV)", Required: true},
			&cli.StringFlag{Name: "excel", Usage: "write an Excel report to the given path"},
			&cli.StringFlag{Name: "sheet-id", Usage: "upload the summary to the given Google Sheet (overrides SHEETS_SPREADSHEET_ID)"},
			&cli.BoolFlag{Name: "no-terminal", Usage: "suppress the terminal report"},
		},
		Action: runCalculate,
	}
}

func runCalculate(c *cli.Context) error {
	cfg := config.Load()
	ctx := c.Context

	configs, err := domain.LoadFundConfigs(c.String("config"))
	if err != nil {
		return err
	}
	transactions, err := ledger.LoadTransactions(c.String("transactions"))
	if err != nil {
		return err
	}

	rateSource, closeDB, err := newRateService(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	svc := tax.NewService(rateSource, cfg.Parallelism)
	results, err := svc.Calculate(ctx, configs, transactions)
	if err != nil {
		return err
	}

	var writers []report.Writer
	if !c.Bool("no-terminal") {
		writers = append(writers, report.NewTerminalWriter(os.Stdout))
	}
	if path := c.String("excel"); path != "" {
		writers = append(writers, report.NewExcelWriter(path))
	}
	if spreadsheetID := firstNonEmpty(c.String("sheet-id"), cfg.SheetsSpreadsheet); spreadsheetID != "" {
		if cfg.SheetsCredentials == "" {
			return fmt.Errorf("SHEETS_CREDENTIALS_JSON is required for Google Sheets upload")
		}
		sw, err := report.NewSheetsWriter(ctx, spreadsheetID, cfg.SheetsCredentials)
		if err != nil {
			return err
		}
		writers = append(writers, sw)
	}

	for _, w := range writers {
		if err := w.Write(ctx, results); err != nil {
			return err
		}
	}
	return nil
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a broker JSON account export into the ledger CSV format",
		ArgsUsage: "<export.json> <output.csv>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("expected <export.json> <output.csv>")
			}
			count, err := ledger.ConvertExport(c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			fmt.Printf("Converted %d transactions to %s\n", count, c.Args().Get(1))
			return nil
		},
	}
}

func ratesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rates",
		Usage: "Resolve an ECB exchange rate (and warm the local cache)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "currency", Usage: "ISO currency code, e.g. USD", Required: true},
			&cli.TimestampFlag{Name: "date", Layout: "2006-01-02", Usage: "rate date (YYYY-MM-DD)", Required: true},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			rateSource, closeDB, err := newRateService(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			date := *c.Timestamp("date")
			rate, err := rateSource.Rate(c.Context, c.String("currency"), date)
			if err != nil {
				return err
			}
			fmt.Printf("1 %s = %s EUR at %s\n", c.String("currency"), rate.StringFixed(4), date.Format("2006-01-02"))
			return nil
		},
	}
}

// newRateService wires the ECB client to the SQLite cache.
func newRateService(cfg config.Config) (*rates.Service, func(), error) {
	if dir := filepath.Dir(cfg.RatesDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating rates cache directory: %w", err)
		}
	}
	db, err := database.Open(cfg.RatesDBPath)
	if err != nil {
		return nil, nil, err
	}

	client := rates.NewClient(cfg.ECBBaseURL, cfg.ECBRetryMax, cfg.ECBRetryBaseDelay)
	repo := rates.NewSQLiteRepository(db)

	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Warn("closing rates cache", "error", err)
		}
	}
	return rates.NewService(client, repo), closeDB, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
