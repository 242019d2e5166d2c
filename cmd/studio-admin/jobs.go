package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"text/tabwriter"
	"time"

	"github.com/merchkit/studio-engine/internal/data"
	"github.com/merchkit/studio-engine/internal/domain/model"
	"github.com/merchkit/studio-engine/internal/service"
	"github.com/merchkit/studio-engine/internal/util"
)

const commandTimeout = 2 * time.Minute

type jobsListOptions struct {
	ShopID string
	Status string
	ToolID string
	Batch  string
	Limit  int
	Offset int
}

func parseJobsListFlags(args []string) (jobsListOptions, error) {
	var opts jobsListOptions
	fs := flag.NewFlagSet("jobs-list", flag.ContinueOnError)
	fs.StringVar(&opts.ShopID, "shop", "", "shop id (required)")
	fs.StringVar(&opts.Status, "status", "", "filter by status (pending, processing, completed, failed, cancelled)")
	fs.StringVar(&opts.ToolID, "tool", "", "filter by tool id")
	fs.StringVar(&opts.Batch, "batch", "", "filter by batch id")
	fs.IntVar(&opts.Limit, "limit", 50, "maximum rows to return")
	fs.IntVar(&opts.Offset, "offset", 0, "rows to skip")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.ShopID == "" {
		return opts, errors.New("-shop is required")
	}
	return opts, nil
}

func runJobsList(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobsListFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	listOpts := model.JobListOptions{
		ShopID: opts.ShopID,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	if opts.Status != "" {
		status := model.JobStatus(opts.Status)
		if !status.Valid() {
			return errors.New("invalid status: " + opts.Status)
		}
		listOpts.Status = &status
	}
	if opts.ToolID != "" {
		listOpts.ToolID = &opts.ToolID
	}
	if opts.Batch != "" {
		listOpts.BatchID = &opts.Batch
	}

	jobRepo := data.NewJobRepo(db, data.JobRepoConfig{Logger: cmdCtx.Logger})
	jobs, err := jobRepo.List(ctx, listOpts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "ID\tSTATUS\tPROGRESS\tTOOL\tPROCESSING\tDELIVERED\tCREATED\n"); err != nil {
		return err
	}
	for _, job := range jobs {
		if err := writef(w, "%s\t%s\t%d\t%s\t%s\t%t\t%s\n",
			job.ID,
			job.Status,
			job.Progress,
			job.ToolID,
			util.FormatProcessingMS(job.ProcessingMS),
			job.Delivered,
			job.CreatedAt.Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runJobShow(cmdCtx *commandContext, args []string) error {
	id, err := parseIDFlag("job-show", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	jobRepo := data.NewJobRepo(db, data.JobRepoConfig{Logger: cmdCtx.Logger})
	job, err := jobRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(job)
}

func runJobStats(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("job-stats", flag.ContinueOnError)
	shopID := fs.String("shop", "", "shop id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *shopID == "" {
		return errors.New("-shop is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	jobRepo := data.NewJobRepo(db, data.JobRepoConfig{Logger: cmdCtx.Logger})
	stats, err := jobRepo.Stats(ctx, *shopID)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runJobRetry(cmdCtx *commandContext, args []string) error {
	return runJobLifecycle(cmdCtx, "job-retry", args, func(ctx context.Context, svc lifecycleService, id string) (*model.Job, error) {
		return svc.Retry(ctx, id)
	})
}

func runJobSync(cmdCtx *commandContext, args []string) error {
	return runJobLifecycle(cmdCtx, "job-sync", args, func(ctx context.Context, svc lifecycleService, id string) (*model.Job, error) {
		return svc.Sync(ctx, id)
	})
}

func runJobCancel(cmdCtx *commandContext, args []string) error {
	return runJobLifecycle(cmdCtx, "job-cancel", args, func(ctx context.Context, svc lifecycleService, id string) (*model.Job, error) {
		return svc.Cancel(ctx, id)
	})
}

// lifecycleService is the slice of SyncService the lifecycle commands need.
type lifecycleService interface {
	Sync(ctx context.Context, id string) (*model.Job, error)
	Retry(ctx context.Context, id string) (*model.Job, error)
	Cancel(ctx context.Context, id string) (*model.Job, error)
}

func runJobLifecycle(
	cmdCtx *commandContext,
	name string,
	args []string,
	op func(context.Context, lifecycleService, string) (*model.Job, error),
) error {
	id, err := parseIDFlag(name, args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	svc, err := newSyncService(cmdCtx.Logger, &cmdCtx.Config, db)
	if err != nil {
		return err
	}

	job, err := op(ctx, svc, id)
	if err != nil {
		return err
	}
	return printJSON(job)
}

func runJobDeliver(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("job-deliver", flag.ContinueOnError)
	id := fs.String("id", "", "job id (required)")
	productID := fs.String("product", "", "destination product id (defaults to the one recorded at dispatch)")
	altText := fs.String("alt", "", "alt text for the delivered media")
	replace := fs.String("replace", "", "existing media id to detach after delivery")
	setPrimary := fs.Bool("primary", false, "reorder the delivered media to the first position")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	orch, err := newOrchestrator(cmdCtx.Logger, &cmdCtx.Config, db)
	if err != nil {
		return err
	}

	job, result, err := orch.Deliver(ctx, service.DeliverRequest{
		JobID:          *id,
		ProductID:      *productID,
		AltText:        *altText,
		ReplaceMediaID: *replace,
		SetPrimary:     *setPrimary,
	})
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"job": job, "result": result})
}

func runBatchShow(cmdCtx *commandContext, args []string) error {
	id, err := parseIDFlag("batch-show", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	batchRepo := data.NewBatchRepo(db, data.BatchRepoConfig{Logger: cmdCtx.Logger})
	batch, err := batchRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(batch)
}

func parseIDFlag(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	id := fs.String("id", "", "record id (required)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *id == "" {
		return "", errors.New("-id is required")
	}
	return *id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
