package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/roach88/textfsm/internal/engine"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	LowercaseKeys bool
	Array         bool
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema <template>",
		Short: "Print the JSON Schema of the records a template emits",
		Long: `Print a JSON Schema describing one record of the template.

Every declared value is a required property. List values are arrays of
strings; all other values are strings. Properties appear in declaration
order.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.LowercaseKeys, "lowercase-keys", false, "lowercase property names")
	cmd.Flags().BoolVar(&opts.Array, "array", false, "describe the whole record list rather than one record")

	return cmd
}

func runSchema(opts *SchemaOptions, path string, cmd *cobra.Command) error {
	formatter := opts.Formatter(cmd)

	tmpl, err := LoadTemplate(TemplateSource{Template: resolveInDir(path, opts.Config.TemplatesDir)}, opts.Logger())
	if err != nil {
		return reportError(formatter, err)
	}

	schema := RecordSchema(tmpl, opts.LowercaseKeys || opts.Config.LowercaseKeys)
	// Wrap for the output of a whole parse, which is a list of records
	if opts.Array {
		schema = &jsonschema.Schema{
			Version: schema.Version,
			Title:   schema.Title,
			Type:    "array",
			Items:   withoutVersion(schema),
		}
	}

	if formatter.Structured() {
		return formatter.Success(schema)
	}

	// Text output is the bare schema document, ready to save to a file
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return reportError(formatter, fmt.Errorf("marshal schema: %w", err))
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}

// RecordSchema describes one record of tmpl. Properties keep declaration
// order. Every value is required, since a record always carries every
// declared value (empty string or empty list when nothing was captured).
func RecordSchema(tmpl *LoadedTemplate, lowercase bool) *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	required := make([]string, 0, len(tmpl.Table.Values()))

	for _, v := range tmpl.Table.Values() {
		name := v.Name
		if lowercase {
			name = engine.LowerName(name)
		}
		prop := &jsonschema.Schema{
			Type:        "string",
			Description: fmt.Sprintf("Captured by (%s)", v.Pattern),
		}
		if v.IsList() {
			prop = &jsonschema.Schema{
				Type:        "array",
				Items:       &jsonschema.Schema{Type: "string"},
				Description: fmt.Sprintf("Every capture of (%s)", v.Pattern),
			}
		}
		// List values are the only non-string shape
		props.Set(name, prop)
		required = append(required, name)
	}

	return &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                filepath.Base(tmpl.Path),
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// withoutVersion copies s for embedding: $schema and title belong only on
// the outermost document.
func withoutVersion(s *jsonschema.Schema) *jsonschema.Schema {
	c := *s
	c.Version = ""
	c.Title = ""
	return &c
}
