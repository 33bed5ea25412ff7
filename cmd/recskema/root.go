package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/reoring/recskema"
	"github.com/reoring/recskema/i18n"
	"github.com/reoring/recskema/schemafile"
)

var (
	// Global flags
	schemaFiles []string
	logLevel    string
	lang        string
)

var rootCmd = &cobra.Command{
	Use:   "recskema",
	Short: "Declare record schemas and move records through their wire form",
	Long: `recskema reads schema declarations from YAML files and works with
records tagged by schema name.

Examples:
  recskema validate -s schemas.yaml events.json
  recskema jsonschema -s schemas.yaml audit.Event
  recskema ddl -s schemas.yaml
  recskema gen -s schemas.yaml --package model -o model/schemas.go`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		recskema.SetLogger(zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger().Level(lvl))
		if lang != "" {
			i18n.SetLanguage(lang)
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&schemaFiles, "schemas", "s", nil, "YAML schema files, loaded in order")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "", "message language (en, ja)")
}

// loadStore declares every --schemas file into a fresh store. A file named
// twice is loaded once.
func loadStore() (*recskema.Store, []*recskema.Schema, error) {
	st := recskema.NewStore()
	loader := schemafile.NewLoader(st)
	var all []*recskema.Schema
	seen := map[string]bool{}
	for _, path := range schemaFiles {
		if seen[path] {
			continue
		}
		seen[path] = true
		schemas, err := loader.LoadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, schemas...)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("no record schemas loaded; pass --schemas")
	}
	return st, all, nil
}

// selectSchemas resolves names through the store, or returns every loaded
// schema when names is empty.
func selectSchemas(st *recskema.Store, loaded []*recskema.Schema, names []string) ([]*recskema.Schema, error) {
	if len(names) == 0 {
		return loaded, nil
	}
	out := make([]*recskema.Schema, 0, len(names))
	for _, n := range names {
		s, err := st.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// openInputs returns readers for the named files, or stdin when none.
func openInputs(cmd *cobra.Command, paths []string) ([]io.Reader, func(), error) {
	if len(paths) == 0 {
		return []io.Reader{cmd.InOrStdin()}, func() {}, nil
	}
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	var rs []io.Reader
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		rs = append(rs, f)
	}
	return rs, closeAll, nil
}

func writeLine(w io.Writer, parts ...string) {
	fmt.Fprintln(w, strings.Join(parts, " "))
}
