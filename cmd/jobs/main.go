// Command jobs is an admin CLI for inspecting resumable classification
// jobs persisted in the embedded SQLite database.
//
// Usage:
//
//	jobs -op=status -job-id=<id>
//	jobs -op=breakdown -job-id=<id>
//
// Requires a config file reachable the same way `classify` finds one
// (LEADSCOUT_CONFIG_PATH or ./config.yaml).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hjonck/leadscout-sub002/internal/adapter/sqlite"
	"github.com/hjonck/leadscout-sub002/internal/adapter/sqlite/jobstore"
	"github.com/hjonck/leadscout-sub002/internal/config"
)

func main() {
	op := flag.String("op", "status", "operation: status | breakdown")
	jobID := flag.String("job-id", "", "job ID to inspect")
	flag.Parse()

	if *jobID == "" {
		fmt.Fprintln(os.Stderr, "Usage: jobs -op=status|breakdown -job-id=<id>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	repo := jobstore.New(db)

	switch *op {
	case "status":
		job, err := repo.GetJob(ctx, *jobID)
		if err != nil {
			log.Fatalf("get job: %v", err)
		}
		finished := "—"
		if job.FinishedAt != nil {
			finished = job.FinishedAt.Format(time.RFC3339)
		}
		fmt.Printf("job_id:             %s\n", job.JobID)
		fmt.Printf("status:             %s\n", job.Status)
		fmt.Printf("total_rows:         %d\n", job.TotalRows)
		fmt.Printf("last_committed_row: %d\n", job.LastCommittedRow)
		fmt.Printf("started_at:         %s\n", job.StartedAt.Format(time.RFC3339))
		fmt.Printf("finished_at:        %s\n", finished)

	case "breakdown":
		breakdown, err := repo.MethodBreakdown(ctx, *jobID)
		if err != nil {
			log.Fatalf("method breakdown: %v", err)
		}
		for method, count := range breakdown {
			fmt.Printf("%-10s %d\n", method, count)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown op %q (want status or breakdown)\n", *op)
		os.Exit(1)
	}
}
