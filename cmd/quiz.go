package cmd

import (
	"fmt"

	"github.com/abhisek/pdfquiz/internal/app"
	"github.com/abhisek/pdfquiz/internal/screens/home"
	quizscreen "github.com/abhisek/pdfquiz/internal/screens/quiz"
	"github.com/spf13/cobra"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Take a quiz in the terminal",
	Long:  "Opens the document picker, or a quiz on --doc straight away.",
	RunE: func(cmd *cobra.Command, args []string) error {
		docID, _ := cmd.Flags().GetString("doc")
		count, _ := cmd.Flags().GetInt("count")
		return runQuiz(cmd, docID, count)
	},
}

// runQuiz opens the store, builds dependencies, and launches the TUI.
func runQuiz(cmd *cobra.Command, docID string, count int) error {
	if count < 0 || count > 100 {
		return fmt.Errorf("--count must be between 1 and 100")
	}

	e, err := setup(cmd, envOptions{logFile: true})
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	sel, err := e.selector(ctx)
	if err != nil {
		return err
	}

	opts := app.Options{
		Home: home.Deps{
			Documents: e.store.Documents(),
			Quiz: quizscreen.Deps{
				Templates:       e.store.Templates(),
				Attempts:        e.store.Attempts(),
				Selector:        sel,
				Count:           count,
				QuestionTimeout: e.cfg.QuestionTimeout,
			},
		},
	}

	if docID != "" {
		doc, err := findDocument(cmd, e, docID)
		if err != nil {
			return err
		}
		opts.Document = doc
	}

	e.log.Info("starting quiz", "document", docID)
	return app.Run(opts)
}

func init() {
	quizCmd.Flags().String("doc", "", "Document ID to quiz on")
	quizCmd.Flags().IntP("count", "n", 0, "Number of questions (default 10)")
}
