package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abhisek/pdfquiz/internal/blob"
	"github.com/abhisek/pdfquiz/internal/ingest"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage ingested documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents and their question templates",
	RunE: func(cmd *cobra.Command, args []string) error {
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
		if len(docs) == 0 {
			fmt.Println("No documents yet. Add one with: pdfquiz ingest <file.pdf>")
			return nil
		}

		fmt.Printf("%-36s  %-30s  %5s  %9s  %s\n", "ID", "Name", "Pages", "Questions", "Status")
		fmt.Println(strings.Repeat("─", 96))
		for _, d := range docs {
			questions, status := "-", "no template"
			tmpl, err := e.store.Templates().Get(ctx, d.ID)
			if err != nil {
				return fmt.Errorf("load template: %w", err)
			}
			if tmpl != nil {
				questions = fmt.Sprint(tmpl.Size())
				valid, err := e.store.Templates().IsValid(ctx, d.ID)
				if err != nil {
					return fmt.Errorf("load template: %w", err)
				}
				status = "ready"
				if !valid {
					status = "expired"
				}
			}
			fmt.Printf("%-36s  %-30s  %5d  %9s  %s\n", d.ID, truncate(d.Name, 30), d.PageCount, questions, status)
		}
		return nil
	},
}

var docsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a document and its question template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		doc, err := findDocument(cmd, e, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:        %s\n", doc.ID)
		fmt.Printf("Name:      %s\n", doc.Name)
		fmt.Printf("Pages:     %d\n", doc.PageCount)
		fmt.Printf("Size:      %d bytes\n", doc.SizeBytes)
		fmt.Printf("Added:     %s\n", doc.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if doc.CoverKey != "" {
			fmt.Printf("Cover:     %s\n", doc.CoverKey)
		}

		tmpl, err := e.store.Templates().Get(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("load template: %w", err)
		}
		if tmpl == nil {
			fmt.Println("\nNo question template. Run: pdfquiz docs regenerate", doc.ID)
			return nil
		}
		valid, err := e.store.Templates().IsValid(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("load template: %w", err)
		}

		fmt.Println()
		fmt.Printf("Revision:  %s\n", tmpl.Revision)
		fmt.Printf("Questions: %d\n", tmpl.Size())
		fmt.Printf("Generated: %s\n", tmpl.GeneratedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Expires:   %s (valid: %v)\n", tmpl.ExpiresAt.Local().Format("2006-01-02 15:04:05"), valid)

		if verbose, _ := cmd.Flags().GetBool("questions"); verbose {
			fmt.Println()
			for i, q := range tmpl.Questions {
				fmt.Printf("%3d. %s\n", i+1, q.Prompt)
				for j, o := range q.Options {
					mark := " "
					if j == q.Answer {
						mark = "*"
					}
					fmt.Printf("     %s %c) %s\n", mark, 'a'+j, o)
				}
			}
		}
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document with its questions, files and rotation state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		doc, err := findDocument(cmd, e, args[0])
		if err != nil {
			return err
		}
		if err := e.store.Documents().Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}

		blobs, err := e.blobs(ctx)
		if err != nil {
			return err
		}
		for _, key := range []string{doc.BlobKey, doc.CoverKey} {
			if key == "" {
				continue
			}
			if err := blobs.Delete(ctx, key); err != nil {
				e.log.Warn("failed to delete blob", "document", doc.ID, "key", key, "error", err)
			}
		}

		sel, err := e.selector(ctx)
		if err != nil {
			return err
		}
		if err := sel.Invalidate(ctx, doc.ID); err != nil {
			e.log.Warn("failed to clear rotation state", "document", doc.ID, "error", err)
		}

		fmt.Printf("Deleted %s (%s)\n", doc.Name, doc.ID)
		return nil
	},
}

var docsRegenerateCmd = &cobra.Command{
	Use:   "regenerate <id>",
	Short: "Generate a fresh question template from the stored PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
			return err
		}

		fmt.Println("Generating questions...")
		report, err := svc.Regenerate(ctx, args[0])
		if err != nil {
			return errors.New(ingest.UserMessage(err))
		}
		printReport(report)
		return nil
	},
}

var docsCoverCmd = &cobra.Command{
	Use:   "cover <id> <image>",
	Short: "Attach a cover image to a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		ct := blob.ContentType(args[1])
		if !strings.HasPrefix(ct, "image/") {
			return fmt.Errorf("%s is not an image", filepath.Base(args[1]))
		}

		e, err := setup(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		doc, err := findDocument(cmd, e, args[0])
		if err != nil {
			return err
		}
		blobs, err := e.blobs(ctx)
		if err != nil {
			return err
		}

		key := blob.CoverKey(doc.ID, args[1])
		if _, err := blobs.Put(ctx, key, bytes.NewReader(data), ct); err != nil {
			return fmt.Errorf("store cover: %w", err)
		}
		if err := e.store.Documents().SetCover(ctx, doc.ID, key); err != nil {
			return fmt.Errorf("save cover: %w", err)
		}
		if doc.CoverKey != "" && doc.CoverKey != key {
			if err := blobs.Delete(ctx, doc.CoverKey); err != nil {
				e.log.Warn("failed to delete old cover", "document", doc.ID, "key", doc.CoverKey, "error", err)
			}
		}

		fmt.Printf("Cover set for %s\n", doc.Name)
		return nil
	},
}

// findDocument loads a document by ID, failing when it does not exist.
func findDocument(cmd *cobra.Command, e *env, id string) (*store.Document, error) {
	doc, err := e.store.Documents().Get(cmd.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return doc, nil
}

func init() {
	docsShowCmd.Flags().BoolP("questions", "q", false, "Print every question with its answer")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsRegenerateCmd)
	docsCmd.AddCommand(docsCoverCmd)
}
