package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reoring/recskema"
	"github.com/reoring/recskema/archive"
	"github.com/reoring/recskema/internal/wirejson"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Store and read records in a bbolt archive",
}

var archivePutCmd = &cobra.Command{
	Use:   "put [file.json...]",
	Short: "Validate records and append them to the archive",
	Long: `Reads tagged JSON records from the files, or stdin, and appends them in
one transaction. Nothing is stored if any record is invalid.`,
	RunE: runArchivePut,
}

var archiveDumpCmd = &cobra.Command{
	Use:   "dump NAME",
	Short: "Print the archived records of a schema as JSON lines",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveDump,
}

var archiveLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List archived schemas with their record counts",
	RunE:  runArchiveLs,
}

var archivePath string

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archivePutCmd, archiveDumpCmd, archiveLsCmd)

	archiveCmd.PersistentFlags().StringVar(&archivePath, "db", "records.db", "archive file path")
}

func openArchive() (*archive.Archive, error) {
	st, _, err := loadStore()
	if err != nil {
		return nil, err
	}
	return archive.Open(archivePath, st)
}

func runArchivePut(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	inputs, closeAll, err := openInputs(cmd, args)
	if err != nil {
		return err
	}
	defer closeAll()

	var recs []*recskema.Record
	for _, in := range inputs {
		dec := wirejson.NewDecoder(in)
		for {
			tree, err := dec.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			r, err := recskema.FromWire(tree, recskema.LoadOpt{Store: a.Store()})
			if err != nil {
				return fmt.Errorf("record %d: %w", len(recs)+1, err)
			}
			recs = append(recs, r)
		}
	}
	seqs, err := a.PutAll(cmd.Context(), recs)
	if err != nil {
		return err
	}
	for i, r := range recs {
		writeLine(cmd.OutOrStdout(), r.Schema().FullName(), strconv.FormatUint(seqs[i], 10))
	}
	return nil
}

func runArchiveDump(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	return a.ForEach(cmd.Context(), args[0], func(seq uint64, r *recskema.Record) error {
		js, err := wirejson.Marshal(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(js))
		return nil
	})
}

func runArchiveLs(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := a.Schemas(cmd.Context())
	if err != nil {
		return err
	}
	for _, n := range names {
		c, err := a.Count(cmd.Context(), n)
		if err != nil {
			return err
		}
		writeLine(cmd.OutOrStdout(), n, strconv.Itoa(c))
	}
	return nil
}
