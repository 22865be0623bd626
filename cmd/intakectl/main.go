package main

// intakectl uploads resume batches from the command line:
//   intakectl -server http://localhost:8080 -guest demo resumes/*.pdf
//   intakectl -server http://localhost:8080 -token $JWT -policy overwrite resumes/*.docx

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ats-backend/internal/intake"
	"ats-backend/internal/intakeclient"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "intake API base URL")
		token     = flag.String("token", "", "JWT bearer token")
		guestID   = flag.String("guest", "", "guest id (used when no token is set)")
		policy    = flag.String("policy", "skip", "duplicate policy: skip or overwrite")
		maxPoll   = flag.Duration("max-poll", 0, "maximum time to poll async tasks (0 = unbounded)")
		list      = flag.Bool("list", false, "list candidates instead of uploading")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := intakeclient.New(*serverURL)
	client.Token = *token
	client.GuestID = *guestID

	if *list {
		if err := listCandidates(ctx, client); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: intakectl [flags] file.pdf [file2.docx ...]")
		os.Exit(2)
	}

	parsedPolicy, err := intake.ParsePolicy(*policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	runner := &intakeclient.Runner{
		Client:          client,
		Policy:          parsedPolicy,
		MaxPollDuration: *maxPoll,
		OnTransfer: func(sent, total int64) {
			fmt.Fprintf(os.Stderr, "\ruploading %d/%d bytes", sent, total)
			if sent == total {
				fmt.Fprintln(os.Stderr)
			}
		},
		OnTaskProgress: func(progress int) {
			fmt.Fprintf(os.Stderr, "processing %d%%\n", progress)
		},
	}

	var files []intakeclient.BatchFile
	for _, p := range paths {
		files = append(files, intakeclient.BatchFile{Path: p})
	}
	rejected, dropped := runner.Add(files...)
	for _, reason := range rejected {
		fmt.Fprintf(os.Stderr, "skipped: %s\n", reason)
	}
	if dropped > 0 {
		fmt.Fprintf(os.Stderr, "dropped %d files beyond the %d-file batch limit\n", dropped, intake.MaxBatchFiles)
	}

	started := time.Now()
	result, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("processed %d files in %s\n", result.TotalProcessed, time.Since(started).Round(time.Millisecond))
	fmt.Printf("  created:    %d\n", result.Created)
	fmt.Printf("  updated:    %d\n", result.Updated)
	fmt.Printf("  duplicates: %d\n", result.Duplicates)
	fmt.Printf("  failed:     %d\n", result.Failed)
	for _, item := range result.Results {
		fmt.Printf("  %-30s %s\n", item.FileName, item.Status)
	}

	if failed := runner.Files(); len(failed) > 0 {
		fmt.Printf("retry these with the same command:\n")
		for _, f := range failed {
			fmt.Printf("  %s\n", f.Path)
		}
		os.Exit(1)
	}
}

func listCandidates(ctx context.Context, client *intakeclient.Client) error {
	cands, err := client.ListCandidates(ctx, 50, 0)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		fmt.Println("no candidates")
		return nil
	}
	for _, c := range cands {
		fmt.Printf("%-36s %-28s %s\n", c.ID, c.Email, c.FullName)
	}
	return nil
}
