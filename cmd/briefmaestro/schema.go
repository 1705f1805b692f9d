package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kingrea/brief-maestro/internal/schema"
)

var schemaImportOut string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List field keys accepted by fill",
	Args:  exactArgs(0),
	RunE:  runKeys,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect or import the brief template",
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active schema definition as YAML",
	Args:  exactArgs(0),
	RunE:  runSchemaShow,
}

var schemaImportCmd = &cobra.Command{
	Use:   "import <template.md>",
	Short: "Convert a markdown brief template into a schema definition",
	Long: `Convert a markdown brief template into a schema definition.

Headings become sections and the first paragraph under a heading becomes its
note. Every line ending in ":" (for example "- **Cliente/Marca:**") becomes a
text field. Edit the result to set kinds and required markers, then point
schema.path in .brief/config.yaml at it.`,
	Args: exactArgs(1),
	RunE: runSchemaImport,
}

func init() {
	schemaImportCmd.Flags().StringVarP(&schemaImportOut, "out", "o", "", "Write the definition to a file instead of stdout")
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaImportCmd)
}

func runKeys(cmd *cobra.Command, args []string) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	for _, key := range s.Keys() {
		fmt.Fprintln(cmd.OutOrStdout(), key)
	}
	return nil
}

func runSchemaShow(cmd *cobra.Command, args []string) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	data, err := schema.MarshalYAML(s.Definition())
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runSchemaImport(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	def, err := schema.ImportMarkdown(source)
	if err != nil {
		return err
	}
	s, err := schema.New(def)
	if err != nil {
		return fmt.Errorf("imported template is not a valid schema: %w", err)
	}
	data, err := schema.MarshalYAML(s.Definition())
	if err != nil {
		return err
	}
	if schemaImportOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(schemaImportOut, data, 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sections, %d fields into %s\n", len(s.Sections()), s.FieldCount(), schemaImportOut)
	return nil
}
