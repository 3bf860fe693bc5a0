package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"bggsync/internal"
	"bggsync/internal/config"
	"bggsync/internal/reference"
	"bggsync/internal/shopify"
	"bggsync/internal/storage"
	"bggsync/internal/upload"
)

const (
	matchedFileName = "bgg_products.csv"
	failedFileName  = "bgg_failed_products.csv"
	reportFileName  = "reconciliation.xlsx"
)

// CatalogFetcher is the read side of the commerce platform.
type CatalogFetcher interface {
	FetchAllProducts(ctx context.Context) ([]internal.Product, error)
}

// RunService drives one full reconciliation: load reference data and the
// catalog, dispatch mutations, reconcile, export, upload, record.
type RunService struct {
	cfg      config.Config
	db       *storage.DB
	fetcher  CatalogFetcher
	mutator  Mutator
	uploader upload.Uploader
}

type RunResult struct {
	TraceID     string
	Counts      internal.RunCounts
	MatchedPath string
	FailedPath  string
	ReportPath  string
}

func NewRunService(db *storage.DB, cfg config.Config) *RunService {
	client := shopify.NewClient(cfg)
	svc := &RunService{cfg: cfg, db: db, fetcher: client, mutator: client}
	if cfg.BlobEndpoint != "" {
		svc.uploader = upload.NewBlobUploader(cfg)
	}
	return svc
}

func (s *RunService) Run(ctx context.Context) (RunResult, error) {
	start := time.Now()

	// Reference loading and the catalog fetch are independent.
	var (
		indexes  *reference.IndexSet
		universe reference.Universe
		products []internal.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		indexes, err = reference.LoadIdentifierIndexes(s.cfg)
		return err
	})
	g.Go(func() error {
		var err error
		universe, err = reference.LoadUniverse(s.cfg.PrimaryDatasetPath(), s.cfg.RPGDatasetPath())
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.fetcher.FetchAllProducts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return RunResult{}, err
	}
	loadedAt := time.Now()

	dispatcher := NewDispatcher(s.cfg, NewMatcher(indexes), s.mutator)
	dispatch, err := dispatcher.Dispatch(ctx, products)
	if err != nil {
		return RunResult{}, err
	}
	dispatchedAt := time.Now()

	rec := Reconcile(dispatch.Products, universe, s.cfg.AffiliateBaseURL)

	result := RunResult{
		TraceID:     traceID(),
		MatchedPath: filepath.Join(s.cfg.OutputDir, matchedFileName),
		FailedPath:  filepath.Join(s.cfg.OutputDir, failedFileName),
		ReportPath:  filepath.Join(s.cfg.OutputDir, reportFileName),
		Counts: internal.RunCounts{
			Fetched:  len(products),
			Skipped:  dispatch.Skipped,
			Assigned: dispatch.Assigned,
			Tagged:   dispatch.Tagged,
			Matched:  len(rec.Matched),
			Failed:   len(rec.Failed),
		},
	}

	if err := WriteMatchedCSV(rec.Matched, result.MatchedPath); err != nil {
		return RunResult{}, err
	}
	fmt.Printf("wrote matched CSV with %d rows\n", len(rec.Matched))
	if err := WriteFailedCSV(rec.Failed, result.FailedPath); err != nil {
		return RunResult{}, err
	}
	fmt.Printf("wrote failed CSV with %d rows\n", len(rec.Failed))
	if err := ExportReportXLSX(rec, dispatch.Outcomes, result.ReportPath); err != nil {
		return RunResult{}, err
	}

	if s.db != nil {
		timings := map[string]float64{
			"loadMs":     float64(loadedAt.Sub(start).Milliseconds()),
			"dispatchMs": float64(dispatchedAt.Sub(loadedAt).Milliseconds()),
			"totalMs":    float64(time.Since(start).Milliseconds()),
		}
		runID, err := s.db.InsertRun(result.TraceID, s.cfg.DryRun, timings, result.Counts)
		if err != nil {
			fmt.Printf("run record failed: %v\n", err)
		} else {
			_ = s.db.InsertMutationOutcomes(runID, dispatch.Outcomes)
		}
	}

	if s.uploader != nil {
		for _, out := range []struct{ name, path string }{
			{matchedFileName, result.MatchedPath},
			{failedFileName, result.FailedPath},
		} {
			if err := s.uploader.Upload(ctx, out.name, out.path); err != nil {
				fmt.Printf("upload %s failed: %v\n", out.name, err)
			}
		}
	}

	return result, nil
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
