package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"huntbook/internal/catalog"
	"huntbook/internal/format"
	"huntbook/internal/hunt"
)

var catalogFlags struct {
	catalog  string
	markdown bool
}

var catalogCmd = &cobra.Command{
	Use:   "catalog [device|user]",
	Short: "List the catalog definitions and their last recorded hit counts",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalog,
}

func init() {
	f := catalogCmd.Flags()
	f.StringVar(&catalogFlags.catalog, "catalog", "", "Catalog file (default: <kind>-queries.json in the catalog dir)")
	f.BoolVar(&catalogFlags.markdown, "markdown", false, "Render as a Markdown table")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	kind := hunt.KindDevice
	if len(args) > 0 {
		if kind, err = parseKindArg(args[0]); err != nil {
			return err
		}
	}

	path := resolveCatalog(cfg, kind, catalogFlags.catalog)
	cat, err := catalog.Load(path)
	if err != nil {
		return err
	}

	mode := format.ASCII
	if catalogFlags.markdown {
		mode = format.Markdown
	}
	tbl := format.NewTable(mode)
	tbl.Header("#", "Name", "Last hits", "Query", "Source")
	tbl.Columns(
		format.Column{Number: 1, Right: true},
		format.Column{Number: 3, Right: true},
		format.Column{Number: 4, MaxWidth: 60},
	)
	total := 0
	for i, def := range cat.Defs {
		tbl.Row(i+1, def.Name, def.ResultCount, format.Truncate(def.Query, 60), def.Source)
		total += def.ResultCount
	}
	tbl.Footer("", fmt.Sprintf("%d queries", len(cat.Defs)), total, "", "")

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", path, tbl.String())
	return nil
}

func parseKindArg(v string) (hunt.Kind, error) {
	switch strings.ToLower(v) {
	case "device":
		return hunt.KindDevice, nil
	case "user":
		return hunt.KindUser, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q (want device or user)", v)
	}
}
