package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/pable/s2-analytics/internal/correlation"
	"github.com/pable/s2-analytics/internal/report"
	"github.com/pable/s2-analytics/internal/storage"
)

var (
	exportFormat      string
	exportMap         string
	exportWithOutcome bool
	exportOut         string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the team-round tag table as CSV or JSON",
	Long: `Write one record per team round with its tags, for analysis in other tools.
CSV has a 0/1 column per tag; JSON lists each team round's tags.

Output ending in .zst is zstd-compressed.

Example:
  s2stats export --format csv --out tags.csv
  s2stats export --format json --map ctf_ash --out ash.json.zst`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or json")
	exportCmd.Flags().StringVar(&exportMap, "map", "", "only export rounds on this map")
	exportCmd.Flags().BoolVar(&exportWithOutcome, "with-outcome", true, "include the win/lose tags")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default: stdout)")
}

func runExport(_ *cobra.Command, _ []string) error {
	var write func(io.Writer, *correlation.Table) error
	switch exportFormat {
	case "csv":
		write = report.WritePivotCSV
	case "json":
		write = report.WritePivotJSON
	default:
		return fmt.Errorf("unknown format %q: use csv or json", exportFormat)
	}

	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	q := storage.TagQuery{Map: strings.ToLower(exportMap)}
	if !exportWithOutcome {
		q.Filter = storage.WithoutOutcome
	}
	rows, err := db.TagRows(q)
	if err != nil {
		return fmt.Errorf("read tag rows: %w", err)
	}
	table := correlation.TableFromRows(rows)

	if exportOut == "" {
		return write(os.Stdout, table)
	}
	if err := writeExportFile(exportOut, table, write); err != nil {
		return err
	}
	logger.Infow("export written", "path", exportOut, "team_rounds", table.Len(), "tags", len(table.Columns()))
	fmt.Fprintf(os.Stderr, "Wrote %s (%d team rounds)\n", exportOut, table.Len())
	return nil
}

func writeExportFile(path string, t *correlation.Table, write func(io.Writer, *correlation.Table) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	var enc *zstd.Encoder
	if strings.HasSuffix(path, ".zst") {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		w = enc
	}
	if err := write(w, t); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
	}
	return f.Close()
}
