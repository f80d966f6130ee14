// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the record of a batch task",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("archive-path", false, "also print the resolved archive path for completed tasks")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	rec, ok, err := a.service.Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no task with identifier %q", args[0])
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return err
	}

	if showPath, _ := cmd.Flags().GetBool("archive-path"); showPath && rec.ZipFilename != "" {
		path, err := a.service.ArchivePath(rec.ZipFilename)
		if err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}
