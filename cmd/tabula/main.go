package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spektr-org/tabula/catalog"
	"github.com/spektr-org/tabula/connector"
	"github.com/spektr-org/tabula/helpers"
	"github.com/spektr-org/tabula/logging"
	"github.com/spektr-org/tabula/render"
	"github.com/spektr-org/tabula/schema"
	"github.com/spektr-org/tabula/sqlbridge"
	"github.com/spektr-org/tabula/steps"
	"github.com/spektr-org/tabula/store"
	"github.com/spektr-org/tabula/table"
)

// ============================================================================
// TABULA CLI: SQL over delimited files, stored step pipelines
// ============================================================================

const version = "0.3.0"

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string     { return strings.Join(*l, ",") }
func (l *listFlag) Set(v string) error { *l = append(*l, v); return nil }

type options struct {
	files     listFlag
	inputs    listFlag
	sql       string
	describe  bool
	pipeline  string
	importP   string
	list      bool
	storePath string
	format    string
	out       string
	print     bool
	snapshots bool
	logLevel  string
	logFormat string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fatalf("%v", err)
	}
}

// run owns every deferred close so they all happen before main exits.
func run(args []string) (err error) {
	var opt options
	fs := flag.NewFlagSet("tabula", flag.ContinueOnError)
	// ── Flags ─────────────────────────────────────────────────────────────
	fs.Var(&opt.files, "file", "CSV file to stage; repeat for @Table2, @Table3, ...")
	fs.StringVar(&opt.sql, "sql", "", "SQL to run over the staged files (@Table1 is the first -file)")
	fs.BoolVar(&opt.describe, "describe", false, "Profile the first -file and print its schema")
	fs.StringVar(&opt.pipeline, "pipeline", "", "Run the named pipeline from -store")
	fs.StringVar(&opt.importP, "import", "", "Save a pipeline JSON file into -store")
	fs.BoolVar(&opt.list, "list", false, "List pipelines in -store")
	fs.Var(&opt.inputs, "input", "Pipeline input as key=value; repeatable")
	fs.StringVar(&opt.storePath, "store", "tabula.db", "Project store file")
	fs.StringVar(&opt.format, "format", "table", "Output format: json, pretty, csv, table")
	fs.StringVar(&opt.out, "out", "", "Write output to file instead of stdout")
	fs.BoolVar(&opt.print, "print", false, "Print every table the catalog materializes to stderr")
	fs.BoolVar(&opt.snapshots, "snapshots", false, "Keep a snapshot of every materialized table in -store")
	fs.StringVar(&opt.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	fs.StringVar(&opt.logFormat, "log-format", "text", "Log format: text, json")
	showVersion := fs.Bool("version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Tabula: typed tables, SQL and step pipelines over delimited data

Usage:
  tabula -file sales.csv -sql "SELECT region, SUM(amount) FROM @Table1 GROUP BY region"
  tabula -file people.csv -file scores.csv -sql "SELECT * FROM @Table1 JOIN @Table2 USING (id)" -format csv
  tabula -file sales.csv -describe -format pretty
  tabula -store project.db -import report.json
  tabula -store project.db -pipeline report -input file=sales.csv -format pretty

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Printf("tabula %s\n", version)
		return nil
	}

	logger, err := logging.New(logging.Config{Level: opt.logLevel, Format: opt.logFormat, Output: os.Stderr})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// ── Output writer ─────────────────────────────────────────────────────
	var writer io.Writer = os.Stdout
	if opt.out != "" {
		f, createErr := os.Create(opt.out)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close output file: %w", cerr)
			}
		}()
		writer = f
	}

	ctx := context.Background()
	switch {
	case opt.importP != "":
		err = runImport(opt)
	case opt.list:
		err = runList(writer, opt)
	case opt.pipeline != "":
		err = runPipeline(ctx, writer, opt, logger)
	case opt.describe:
		err = runDescribe(writer, opt)
	case opt.sql != "":
		err = runSQL(ctx, writer, opt, logger)
	default:
		fs.Usage()
		return errors.New("one of -sql, -describe, -pipeline, -import or -list is required")
	}
	return err
}

// ============================================================================
// MODES
// ============================================================================

func readTables(files []string) ([]*table.Table, error) {
	tables := make([]*table.Table, len(files))
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t, err := helpers.ParseCSV(data, helpers.ParseOptions{Name: name})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		slog.Info("parsed file", "file", path, "rows", t.RowCount(), "columns", t.NumColumns())
		tables[i] = t
	}
	return tables, nil
}

func runSQL(ctx context.Context, w io.Writer, opt options, logger *slog.Logger) error {
	if len(opt.files) == 0 {
		return fmt.Errorf("-sql needs at least one -file")
	}
	tables, err := readTables(opt.files)
	if err != nil {
		return err
	}
	result, err := sqlbridge.Query(ctx, opt.sql, tables, sqlbridge.WithLogger(logger))
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Fprintln(w, "OK")
		return nil
	}
	return writeTable(w, result, opt.format)
}

func runDescribe(w io.Writer, opt options) error {
	if len(opt.files) == 0 {
		return fmt.Errorf("-describe needs -file")
	}
	tables, err := readTables(opt.files[:1])
	if err != nil {
		return err
	}
	cfg := schema.Profile(tables[0])
	slog.Info("profiled", "name", cfg.Name, "dimensions", len(cfg.Dimensions()), "measures", len(cfg.Measures()), "skipped", len(cfg.Skipped()))
	if opt.format == "json" {
		return writeJSON(w, cfg, false)
	}
	return writeJSON(w, cfg, true)
}

func runImport(opt options) error {
	data, err := os.ReadFile(opt.importP)
	if err != nil {
		return fmt.Errorf("failed to read pipeline: %w", err)
	}
	var p steps.Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse pipeline JSON: %w", err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(opt.importP), filepath.Ext(opt.importP))
	}
	if err := steps.FromPipeline(p).Validate(nil); err != nil {
		return fmt.Errorf("pipeline %q: %w", p.Name, err)
	}

	st, err := store.Open(opt.storePath, 0o600, nil)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.SavePipeline(p); err != nil {
		return err
	}
	slog.Info("pipeline saved", "name", p.Name, "store", opt.storePath)
	return nil
}

func runList(w io.Writer, opt options) error {
	st, err := store.Open(opt.storePath, 0o600, nil)
	if err != nil {
		return err
	}
	defer st.Close()
	names, err := st.Pipelines()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}

func runPipeline(ctx context.Context, w io.Writer, opt options, logger *slog.Logger) error {
	input, err := parseInputs(opt.inputs)
	if err != nil {
		return err
	}

	st, err := store.Open(opt.storePath, 0o600, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := st.LoadPipeline(opt.pipeline)
	if err != nil {
		return err
	}

	registry := connector.NewRegistry()
	dir, _ := os.Getwd()
	for kind, c := range map[string]connector.Connector{
		connector.KindPath: connector.Path{Dir: dir},
		connector.KindWeb:  connector.NewWeb(),
	} {
		if err := registry.Register(kind, c); err != nil {
			return err
		}
	}

	catOpts := []catalog.Option{catalog.WithLogger(logger)}
	if opt.print {
		catOpts = append(catOpts, catalog.WithPrint(os.Stderr))
	}
	if opt.snapshots {
		catOpts = append(catOpts, catalog.WithSnapshots(st))
	}
	cat, err := catalog.New(ctx, registry, catOpts...)
	if err != nil {
		return err
	}
	defer cat.Close()

	decls, err := st.Declarations()
	if err != nil {
		return err
	}
	for name, d := range decls {
		cat.Declare(name, d)
	}

	roots, err := steps.FromPipeline(p).Snapshot(steps.BuildContext{Catalog: cat, Logger: logger})
	if err != nil {
		return err
	}
	result, err := steps.Evaluate(ctx, roots, input)
	if err != nil {
		return err
	}
	for name, d := range cat.Declarations() {
		if err := st.SaveDeclaration(name, d); err != nil {
			logger.Warn("declaration not saved", "name", name, "error", err)
		}
	}
	return writeResult(w, result, opt.format)
}

func parseInputs(pairs []string) (map[string]string, error) {
	input := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("-input %q: want key=value", p)
		}
		input[k] = v
	}
	return input, nil
}

// ============================================================================
// OUTPUT
// ============================================================================

type tableOutput struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
	Types   []string `json:"types"`
	Rows    [][]any  `json:"rows"`
}

func writeTable(w io.Writer, t *table.Table, format string) error {
	switch format {
	case "csv":
		return t.WriteDelimited(w)
	case "json", "pretty":
		rows, err := t.Rows()
		if err != nil {
			return err
		}
		out := tableOutput{Name: t.Name, Columns: t.RowKeys(), Rows: make([][]any, len(rows))}
		if l := t.Label(); l != nil {
			out.Types = append(out.Types, l.Type().String())
		}
		for _, c := range t.Columns() {
			out.Types = append(out.Types, c.Type().String())
		}
		for i, row := range rows {
			cells := make([]any, len(row))
			for j, v := range row {
				cells[j] = jsonCell(v)
			}
			out.Rows[i] = cells
		}
		return writeJSON(w, out, format == "pretty")
	default:
		_, err := fmt.Fprintln(w, render.Table(t))
		return err
	}
}

func writeResult(w io.Writer, result map[string]string, format string) error {
	switch format {
	case "json":
		return writeJSON(w, result, false)
	case "pretty":
		return writeJSON(w, result, true)
	}
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "── %s ──\n%s\n", k, result[k])
	}
	return nil
}

func jsonCell(v table.Value) any {
	switch v.Kind {
	case table.KindNull:
		return nil
	case table.KindNumber:
		return v.Num
	default:
		return v.String()
	}
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	var out []byte
	var err error
	if pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// ============================================================================
// HELPERS
// ============================================================================

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
