package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rotationCmd = &cobra.Command{
	Use:   "rotation",
	Short: "Manage question rotation state",
}

var rotationResetCmd = &cobra.Command{
	Use:   "reset <doc-id>",
	Short: "Forget which questions a document has already served",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		doc, err := findDocument(cmd, e, args[0])
		if err != nil {
			return err
		}
		sel, err := e.selector(cmd.Context())
		if err != nil {
			return err
		}
		if err := sel.Invalidate(cmd.Context(), doc.ID); err != nil {
			return fmt.Errorf("reset rotation: %w", err)
		}
		fmt.Printf("Rotation reset for %s\n", doc.Name)
		return nil
	},
}

func init() {
	rotationCmd.AddCommand(rotationResetCmd)
}
