// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litfetch/internal/batch"
	"github.com/pdiddy/litfetch/pkg/types"
)

var submitCmd = &cobra.Command{
	Use:   "submit <articles.json>",
	Short: "Submit a batch of articles for PDF retrieval",
	Long: `Submit reads a JSON file containing an array of article entries
({"pdfLink": ..., "title": ..., "doi": ...}) and submits them as one batch
task. Identical submissions are deduplicated by content: a batch that
already completed returns its archive name, and one still in flight is
reported as such without starting a second run.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().Bool("wait", true, "wait for the batch run to finish before exiting")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading article list: %w", err)
	}
	var articles []types.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return fmt.Errorf("parsing article list: %w", err)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.service.Submit(cmd.Context(), articles)
	if err != nil {
		return err
	}

	switch result.Status {
	case batch.SubmitAlreadyCompleted:
		fmt.Printf("already completed: task %s, archive %s\n", result.TaskID, result.ZipFilename)
		return nil
	case batch.SubmitAlreadyInFlight:
		fmt.Printf("already in flight: task %s (%s)\n", result.TaskID, result.Message)
		return nil
	}

	fmt.Printf("accepted: task %s (%d articles)\n", result.TaskID, len(articles))

	wait, _ := cmd.Flags().GetBool("wait")
	if !wait {
		return nil
	}
	a.service.Wait()

	rec, ok, err := a.service.Status(cmd.Context(), result.TaskID)
	if err != nil || !ok {
		return fmt.Errorf("task finished but record unavailable: %v", err)
	}
	fmt.Printf("finished: status %s, %d/%d succeeded", rec.Status, rec.NumSuccess, rec.NumRequested)
	if rec.ZipFilename != "" {
		fmt.Printf(", archive %s", rec.ZipFilename)
	}
	fmt.Println()
	for _, item := range rec.FailedItems {
		fmt.Printf("  failed: %s (%s)\n", item.Title, item.Reason)
	}
	if rec.Status != types.StatusCompleted {
		return fmt.Errorf("batch ended with status %s", rec.Status)
	}
	return nil
}
