package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pricewatch/backend/internal/infrastructure/arfigyelo"
	"github.com/pricewatch/backend/internal/usecase"
)

func main() {
	app := &cli.App{
		Name:      "pricewatch",
		Usage:     "run a fuzzy product search against the daily price catalog",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 5,
				Usage: "maximum matches to return",
			},
			&cli.Float64Flag{
				Name:  "min-score",
				Value: 45,
				Usage: "minimum similarity score (0-100) to include a match",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "local Excel file to use instead of downloading",
			},
			&cli.BoolFlag{
				Name:  "force-refresh",
				Usage: "redownload the export before searching",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: runSearch,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runSearch(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return cli.Exit("usage: pricewatch [flags] QUERY", 2)
	}

	client := arfigyelo.NewClient(arfigyelo.Config{
		LocalFile: c.String("source"),
		Debug:     c.Bool("debug"),
	})

	normalizer := usecase.NewNormalizer(usecase.NormalizerConfig{})
	builder := usecase.NewIndexBuilder(normalizer, c.Bool("debug"))
	controller := usecase.NewRefreshController(client, builder, c.Bool("debug"))

	matcher, err := usecase.NewMatcher(normalizer, usecase.MatcherConfig{
		MinScore:           c.Float64("min-score"),
		EnableDebugLogging: c.Bool("debug"),
	})
	if err != nil {
		return err
	}
	defer matcher.Release()

	ctx := context.Background()
	if c.Bool("force-refresh") {
		if _, err := controller.ForceRefresh(ctx); err != nil {
			return err
		}
	}
	index, _, err := controller.MaybeRebuild(ctx)
	if err != nil {
		return err
	}

	results, err := matcher.Search(ctx, index, query, c.Int("limit"), -1)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return cli.Exit("No matches found", 1)
	}

	for i, match := range results {
		fmt.Printf("#%d score=%.1f %s\n", i+1, match.Score, match.Record.Name)
		if match.Record.Brand != "" {
			fmt.Printf("  brand: %s\n", match.Record.Brand)
		}
		if match.Record.Package != "" {
			fmt.Printf("  package: %s\n", match.Record.Package)
		}
		if len(match.StoreRows) > 0 {
			fmt.Println("  prices:")
			for _, quote := range match.StoreRows {
				fmt.Printf("    %s: %.0f %s\n", quote.StoreID, quote.Price, quote.Currency)
			}
		}
		fmt.Println()
	}
	return nil
}
