package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/abhisek/pdfquiz/internal/export"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/spf13/cobra"
)

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Review and export quiz attempts",
}

var attemptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		docID, _ := cmd.Flags().GetString("doc")
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := setup(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		attempts, err := e.store.Attempts().List(ctx, store.QueryOpts{DocumentID: docID, Limit: limit})
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		if len(attempts) == 0 {
			fmt.Println("No attempts found.")
			return nil
		}
		names, err := documentNames(cmd, e)
		if err != nil {
			return err
		}

		fmt.Printf("%-19s  %-30s  %7s  %6s  %s\n", "Completed", "Document", "Score", "%", "Timed out")
		fmt.Println(strings.Repeat("─", 80))
		for _, a := range attempts {
			name := names[a.DocumentID]
			if name == "" {
				name = a.DocumentID
			}
			timedOut := 0
			for _, ans := range a.Answers {
				if ans < 0 {
					timedOut++
				}
			}
			pct := 0.0
			if a.TotalQuestions > 0 {
				pct = float64(a.Score) * 100 / float64(a.TotalQuestions)
			}
			fmt.Printf("%-19s  %-30s  %3d/%-3d  %5.1f%%  %d\n",
				a.CompletedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(name, 30), a.Score, a.TotalQuestions, pct, timedOut)
		}
		return nil
	},
}

var attemptsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attempts to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		docID, _ := cmd.Flags().GetString("doc")
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := setup(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		docs, err := e.store.Documents().List(ctx)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		attempts, err := e.store.Attempts().List(ctx, store.QueryOpts{DocumentID: docID, Limit: limit})
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if err := export.Attempts(f, attempts, docs); err != nil {
			f.Close()
			return fmt.Errorf("export: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}

		fmt.Printf("Wrote %d attempts to %s\n", len(attempts), out)
		return nil
	},
}

// documentNames maps document IDs to names.
func documentNames(cmd *cobra.Command, e *env) (map[string]string, error) {
	docs, err := e.store.Documents().List(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	names := make(map[string]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Name
	}
	return names, nil
}

func init() {
	attemptsListCmd.Flags().String("doc", "", "Only show attempts for this document ID")
	attemptsListCmd.Flags().IntP("limit", "n", 20, "Number of attempts to show")

	attemptsExportCmd.Flags().StringP("out", "o", "attempts.xlsx", "Output file")
	attemptsExportCmd.Flags().String("doc", "", "Only export attempts for this document ID")
	attemptsExportCmd.Flags().IntP("limit", "n", 1000, "Maximum number of attempts to export")

	attemptsCmd.AddCommand(attemptsListCmd)
	attemptsCmd.AddCommand(attemptsExportCmd)
}
