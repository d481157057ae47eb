package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abhisek/pdfquiz/internal/ingest"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>",
	Short: "Add a PDF and generate its question set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		pageRange, _ := cmd.Flags().GetString("pages")

		pages, err := ingest.ParsePages(pageRange)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		if name == "" {
			name = filepath.Base(args[0])
		}

		e, err := setup(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		sel, err := e.selector(ctx)
		if err != nil {
			return err
		}
		svc, err := e.ingester(ctx, sel)
		if err != nil {
			return errors.New(ingest.UserMessage(err))
		}

		fmt.Printf("Generating questions for %s...\n", name)
		report, err := svc.Ingest(ctx, ingest.Upload{Name: name, Data: data, Pages: pages})
		if report != nil {
			printReport(report)
		}
		if err != nil {
			if report != nil && report.Document != nil {
				fmt.Printf("\nThe document was kept as %s. Retry with: pdfquiz docs regenerate %s\n",
					report.Document.ID, report.Document.ID)
			}
			return errors.New(ingest.UserMessage(err))
		}
		doc := report.Document
		fmt.Printf("\nDocument ID: %s\nRun `pdfquiz quiz --doc %s` to start a quiz.\n", doc.ID, doc.ID)
		return nil
	},
}

// printReport summarizes a pipeline run for the terminal.
func printReport(r *ingest.Report) {
	if r.Document != nil && r.Document.PageCount > 0 {
		fmt.Printf("Pages:      %d\n", r.Document.PageCount)
	}
	if r.Truncated {
		fmt.Println("Note:       the text was truncated; only the beginning of the document was used")
	}
	fmt.Printf("Chunks:     %d\n", r.Chunks)
	fmt.Printf("Questions:  %d", r.Questions)
	if r.Duplicates > 0 || r.Rejected > 0 {
		fmt.Printf(" (%d duplicates dropped, %d invalid rejected)", r.Duplicates, r.Rejected)
	}
	fmt.Println()

	if len(r.Failures) > 0 {
		fmt.Printf("Failed chunks: %d\n", len(r.Failures))
		for _, f := range r.Failures {
			fmt.Printf("  chunk %d: %s: %v\n", f.Chunk+1, f.Kind, f.Err)
		}
	}
	if r.SaveWarning != nil {
		fmt.Printf("Warning: the questions could not be saved: %v\n", r.SaveWarning)
	}
}

func init() {
	ingestCmd.Flags().String("name", "", "Display name (default: the file name)")
	ingestCmd.Flags().String("pages", "", "Page range to use, e.g. 3-10, 5- or 7")
}
