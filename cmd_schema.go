package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"library-records/library"
)

var entities = map[string]any{
	"book":     library.Book{},
	"user":     library.User{},
	"checkout": library.Checkout{},
}

func entityNames() []string {
	names := make([]string, 0, len(entities))
	for k := range entities {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// schemaJSON returns the indented JSON Schema of one stored entity.
func schemaJSON(name string) ([]byte, error) {
	v, ok := entities[name]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q, want one of %v", name, entityNames())
	}
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	b, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(b), nil
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [book|user|checkout]",
		Short:     "Print the JSON Schema of the stored records",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: entityNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = entityNames()
			}
			w := cmd.OutOrStdout()
			color := false
			if f, ok := w.(*os.File); ok {
				color = isatty.IsTerminal(f.Fd())
			}
			for _, name := range names {
				b, err := schemaJSON(name)
				if err != nil {
					return err
				}
				if color {
					b = pretty.Color(b, nil)
				}
				if _, err := w.Write(b); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
