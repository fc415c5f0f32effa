package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lgggrade/internal/lgg"
	"github.com/MeKo-Tech/lgggrade/internal/node"
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Print the RGB triples derived from the configured look",
	RunE: func(cmd *cobra.Command, args []string) error {
		if logger == nil {
			initLogging()
		}
		look, err := lookFromConfig()
		if err != nil {
			return err
		}
		return writeDerived(cmd.OutOrStdout(), look)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the node's input schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeSchema(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(schemaCmd)
}

type derivedReport struct {
	Look    lgg.Snapshot `json:"look"`
	Derived lgg.Derived  `json:"derived"`
}

func writeDerived(w io.Writer, look lgg.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(derivedReport{Look: look, Derived: look.Derive()}); err != nil {
		return fmt.Errorf("failed to encode derived values: %w", err)
	}
	return nil
}

type schemaReport struct {
	DisplayName string       `json:"display_name"`
	Category    string       `json:"category"`
	Inputs      []node.Input `json:"inputs"`
}

func writeSchema(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	report := schemaReport{
		DisplayName: node.DisplayName,
		Category:    node.Category,
		Inputs:      node.InputTypes(),
	}
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
