package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docqa/internal/adapter/fs"
	"docqa/internal/usecase"
	"docqa/pkg/logger"
)

var (
	ingestIncludes []string
	ingestExcludes []string
	ingestReplace  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest all supported documents under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		walker := fs.NewWalker(ingestIncludes, ingestExcludes)
		files, err := walker.Walk(root)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", root, err)
		}
		if len(files) == 0 {
			fmt.Println("no ingestable files found")
			return nil
		}

		bar := progressbar.Default(int64(len(files)), "ingesting")
		var ingested, skipped, failed int
		for _, file := range files {
			f, err := os.Open(file.Path)
			if err != nil {
				log.Error("cannot open file", logger.String("path", file.Path), logger.Err(err))
				failed++
				_ = bar.Add(1)
				continue
			}
			result, err := a.ingestor.Ingest(ctx, file.Name, f, usecase.IngestOptions{Replace: ingestReplace})
			f.Close()
			switch {
			case err != nil:
				log.Error("ingestion failed", logger.String("path", file.Path), logger.Err(err))
				failed++
			case result.Duplicate:
				skipped++
			default:
				ingested++
			}
			_ = bar.Add(1)
		}

		fmt.Printf("done: %d ingested, %d skipped, %d failed\n", ingested, skipped, failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(files))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestIncludes, "include", nil, "glob patterns of files to include")
	ingestCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "glob patterns of files to exclude")
	ingestCmd.Flags().BoolVar(&ingestReplace, "replace", false, "re-ingest files that were already ingested")
	rootCmd.AddCommand(ingestCmd)
}
