package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bggsync/internal/config"
	"bggsync/internal/pipeline"
	"bggsync/internal/reference"
	"bggsync/internal/storage"
	"bggsync/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dryRun := fs.Bool("dry-run", cfg.DryRun, "log mutations without contacting the platform")
		_ = fs.Parse(os.Args[2:])
		cfg.DryRun = *dryRun

		must(cfg.Require("SHOPIFY_SHOP_DOMAIN", cfg.ShopDomain))
		must(cfg.Require("SHOPIFY_ACCESS_TOKEN", cfg.AccessToken))
		must(cfg.Require("WEBSITE_URL", cfg.AffiliateBaseURL))

		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		svc := pipeline.NewRunService(db, cfg)
		result, err := svc.Run(context.Background())
		must(err)
		fmt.Printf("run %s done: fetched=%d skipped=%d assigned=%d tagged=%d matched=%d failed=%d\n",
			result.TraceID, result.Counts.Fetched, result.Counts.Skipped, result.Counts.Assigned,
			result.Counts.Tagged, result.Counts.Matched, result.Counts.Failed)
	case "match":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		barcode := fs.String("barcode", "", "raw barcode to resolve")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*barcode) == "" {
			must(fmt.Errorf("--barcode is required"))
		}

		indexes, err := reference.LoadIdentifierIndexes(cfg)
		must(err)
		decision := pipeline.NewMatcher(indexes).Resolve(util.StringPtr(*barcode))
		switch {
		case decision.Matched():
			fmt.Printf("matched objectid=%s\n", decision.ObjectID)
		case len(decision.Ambiguous) > 0:
			fmt.Printf("ambiguous candidates=%s\n", strings.Join(decision.Ambiguous, ","))
		default:
			fmt.Println("no match")
		}
	case "indexes:stats":
		indexes, err := reference.LoadIdentifierIndexes(cfg)
		must(err)
		for _, idx := range indexes.Ordered() {
			fmt.Printf("%s: %d identifiers\n", idx.Kind, idx.Len())
		}
		universe, err := reference.LoadUniverse(cfg.PrimaryDatasetPath(), cfg.RPGDatasetPath())
		must(err)
		fmt.Printf("universe: %d object ids\n", len(universe))
	case "runs:recent":
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		runs, err := db.ListRecentRuns(10)
		must(err)
		for _, run := range runs {
			fmt.Printf("%s %s dryRun=%v matched=%d failed=%d\n",
				run.CreatedAt, run.TraceID, run.DryRun, run.Counts.Matched, run.Counts.Failed)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: bggsync <command>")
	fmt.Println("commands:")
	fmt.Println("  run [--dry-run]")
	fmt.Println("  match --barcode=012345678905")
	fmt.Println("  indexes:stats")
	fmt.Println("  runs:recent")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
