package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reoring/recskema/avro"
	"github.com/reoring/recskema/graph"
	"github.com/reoring/recskema/internal/gen"
	"github.com/reoring/recskema/jsonschema"
	"github.com/reoring/recskema/sqlddl"
)

var jsonschemaCmd = &cobra.Command{
	Use:   "jsonschema NAME",
	Short: "Print the JSON Schema of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := loadStore()
		if err != nil {
			return err
		}
		s, err := st.Get(args[0])
		if err != nil {
			return err
		}
		js, err := jsonschema.FromSchema(s)
		if err != nil {
			return err
		}
		out, err := jsonschema.Marshal(js)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var avroCmd = &cobra.Command{
	Use:   "avro NAME",
	Short: "Print the Avro schema of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := loadStore()
		if err != nil {
			return err
		}
		s, err := st.Get(args[0])
		if err != nil {
			return err
		}
		if avroCanonical {
			codec, err := avro.NewCodec(s)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), codec.Schema())
			return nil
		}
		out, err := avro.SchemaJSON(s)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var ddlCmd = &cobra.Command{
	Use:   "ddl [NAME...]",
	Short: "Print Postgres CREATE TABLE statements",
	Long: `Prints one CREATE TABLE statement per record, referenced records first.
Without names every loaded record is included.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, loaded, err := loadStore()
		if err != nil {
			return err
		}
		schemas, err := selectSchemas(st, loaded, args)
		if err != nil {
			return err
		}
		stmts, err := sqlddl.CreateTables(schemas, sqlddl.Options{Schema: ddlSchema})
		if err != nil {
			return err
		}
		for _, s := range stmts {
			fmt.Fprintln(cmd.OutOrStdout(), s+";")
		}
		return nil
	},
}

var genCmd = &cobra.Command{
	Use:   "gen [NAME...]",
	Short: "Generate Go declarations for the loaded records",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, loaded, err := loadStore()
		if err != nil {
			return err
		}
		schemas, err := selectSchemas(st, loaded, args)
		if err != nil {
			return err
		}
		code, err := gen.Render(gen.File{Package: genPackage, Schemas: schemas})
		if err != nil {
			return err
		}
		if genOut == "" || genOut == "-" {
			_, err = cmd.OutOrStdout().Write(code)
			return err
		}
		return os.WriteFile(genOut, code, 0o644)
	},
}

var orderCmd = &cobra.Command{
	Use:   "order [NAME...]",
	Short: "List records so that each follows the records it references",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, loaded, err := loadStore()
		if err != nil {
			return err
		}
		schemas, err := selectSchemas(st, loaded, args)
		if err != nil {
			return err
		}
		ordered, err := graph.NewTraverser().ReferenceOrder(schemas)
		if err != nil {
			return err
		}
		names := make([]string, len(ordered))
		for i, s := range ordered {
			names[i] = s.FullName()
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
		return nil
	},
}

var (
	avroCanonical bool
	ddlSchema     string
	genPackage    string
	genOut        string
)

func init() {
	rootCmd.AddCommand(jsonschemaCmd, avroCmd, ddlCmd, genCmd, orderCmd)

	avroCmd.Flags().BoolVar(&avroCanonical, "canonical", false, "print the parsing canonical form")
	ddlCmd.Flags().StringVar(&ddlSchema, "db-schema", "", "Postgres schema qualifying table names")
	genCmd.Flags().StringVar(&genPackage, "package", "schemas", "package name of the generated file")
	genCmd.Flags().StringVarP(&genOut, "output", "o", "", "output file (default stdout)")
}
