/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/bireme/ioisis-go/pkg/isostream"
	"github.com/bireme/ioisis-go/pkg/linewrap"
	"github.com/bireme/ioisis-go/pkg/record"
	"github.com/bireme/ioisis-go/pkg/subfield"
)

// iso2jsonlCmd converts an ISO 2709 byte stream to JSONL.
var iso2jsonlCmd = &cobra.Command{
	Use:   "iso2jsonl <input> <output>",
	Short: "Convert an ISO 2709 file to JSONL",
	Long: `Convert an ISO 2709 file to line-delimited JSON, one object per
record, in the {"<tag>": ["<value>", ...], ...} shape.

Example:
  ioisis iso2jsonl records.iso records.jsonl
  ioisis iso2jsonl - - < records.iso > records.jsonl`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := createOutput(args[1])
		if err != nil {
			return err
		}
		defer out.Close()

		return runISO2JSONL(in, out)
	},
}

func runISO2JSONL(in io.Reader, out io.Writer) error {
	geom := cfg.Geometry.ToGeometry()
	wrapped := linewrap.NewReader(in, cfg.LineWrap.ToOptions())
	scanner := isostream.NewScanner(wrapped, geom)

	subMode := subfield.Mode(cfg.Mode)
	subOpts := cfg.Subfield.ToOptions(cfg.WithNumber)

	bw := bufio.NewWriter(out)
	defer bw.Flush()

	for scanner.Scan() {
		rec := scanner.Record()
		dict, err := record.FromFields(rec.Fields, cfg.ISOEncoding, subMode, subOpts)
		if err != nil {
			return err
		}
		line, err := json.Marshal(dict)
		if err != nil {
			return err
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func init() {
	rootCmd.AddCommand(iso2jsonlCmd)
}
