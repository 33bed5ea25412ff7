package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reoring/recskema"
	"github.com/reoring/recskema/internal/wirejson"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file.json...]",
	Short: "Check tagged JSON records against the loaded schemas",
	Long: `Reads a stream of JSON records from the files, or stdin, and loads each
through the schema named by its tag. Every failure is reported with its path
and code. A record is valid when it loads and every field
has a value or a default.

Examples:
  recskema validate -s schemas.yaml events.json
  cat events.json | recskema validate -s schemas.yaml --max-depth 32`,
	RunE: runValidate,
}

var (
	validateMaxDepth int
	validateMaxBytes int64
	validateKey      string
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().IntVar(&validateMaxDepth, "max-depth", 0, "maximum JSON nesting depth (0 = unlimited)")
	validateCmd.Flags().Int64Var(&validateMaxBytes, "max-bytes", 0, "maximum input size per file (0 = unlimited)")
	validateCmd.Flags().StringVar(&validateKey, "schema-key", recskema.DefaultSchemaKey, "wire key carrying the schema name")
}

func runValidate(cmd *cobra.Command, args []string) error {
	st, _, err := loadStore()
	if err != nil {
		return err
	}
	inputs, closeAll, err := openInputs(cmd, args)
	if err != nil {
		return err
	}
	defer closeAll()

	out := cmd.OutOrStdout()
	var ok, bad int
	for i, in := range inputs {
		name := "-"
		if len(args) > 0 {
			name = args[i]
		}
		dec := wirejson.NewDecoder(in, wirejson.Options{MaxDepth: validateMaxDepth, MaxBytes: validateMaxBytes})
		for n := 1; ; n++ {
			tree, err := dec.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			loc := fmt.Sprintf("%s#%d", name, n)
			if err != nil {
				bad++
				report(out, loc, err)
				// the decoder cannot resume after malformed input
				break
			}
			r, err := recskema.FromWire(tree, recskema.LoadOpt{Store: st, SchemaKey: validateKey})
			if err == nil {
				// absent fields without a default only fail on the way out
				_, err = recskema.ToWire(r)
			}
			if err != nil {
				bad++
				report(out, loc, err)
				continue
			}
			ok++
			writeLine(out, loc, "ok", r.Schema().FullName())
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d records invalid", bad, ok+bad)
	}
	return nil
}

func report(w io.Writer, loc string, err error) {
	for _, is := range recskema.IssuesOf(err) {
		writeLine(w, loc, is.Code, "at", is.Path+":", is.Message)
	}
}
