package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Writes Binance klines as a date,close series usable as a data or sample file.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		symbol   string
		interval string
		limit    int
		outDir   string
	)

	cmd := &cobra.Command{
		Use:          "fetch_binance_klines",
		Short:        "Download klines and save their close prices as CSV",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := filepath.Join(outDir, fmt.Sprintf("%s_%s.csv", symbol, interval))
			return fetch(cmd.Context(), symbol, interval, limit, output)
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "Trading symbol")
	cmd.Flags().StringVar(&interval, "interval", "1d", "Kline interval (1m, 5m, 1h, 1d, 1w, etc.)")
	cmd.Flags().IntVar(&limit, "limit", 1000, "Number of klines to fetch (max 1000)")
	cmd.Flags().StringVar(&outDir, "out-dir", "data/close", "Output directory")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func fetch(ctx context.Context, symbol, interval string, limit int, output string) error {
	url := fmt.Sprintf("https://api.binance.com/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		symbol, interval, limit)

	log.Info().Str("symbol", symbol).Str("interval", interval).Msg("Fetching klines from Binance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("binance returned %s", resp.Status)
	}

	var klines [][]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	log.Info().Int("klines", len(klines)).Msg("Fetched klines")

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Write([]string{"Date", "Close"})

	// Binance kline format:
	// [0] Open time (ms), [1] Open, [2] High, [3] Low, [4] Close, ...
	written := 0
	for _, k := range klines {
		if len(k) < 5 {
			continue
		}
		openTimeMs, ok := k[0].(float64)
		if !ok {
			continue
		}
		closeText, ok := k[4].(string)
		if !ok {
			continue
		}
		closePrice, err := decimal.NewFromString(closeText)
		if err != nil {
			log.Warn().Err(err).Str("close", closeText).Msg("Skipping kline")
			continue
		}

		date := time.UnixMilli(int64(openTimeMs)).UTC().Format("2006-01-02")
		writer.Write([]string{date, closePrice.String()})
		written++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	log.Info().Str("path", output).Int("rows", written).Msg("Saved")
	return nil
}
