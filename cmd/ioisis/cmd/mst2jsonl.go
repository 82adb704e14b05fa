/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/bireme/ioisis-go/pkg/mst"
	"github.com/bireme/ioisis-go/pkg/record"
	"github.com/bireme/ioisis-go/pkg/subfield"
)

// mst2jsonlCmd converts a CDS/ISIS Master File (MST+XRF pair) to JSONL.
var mst2jsonlCmd = &cobra.Command{
	Use:   "mst2jsonl <input.mst> <output>",
	Short: "Convert a CDS/ISIS Master File to JSONL",
	Long: `Convert a CDS/ISIS Master File (name.mst plus its companion
name.xrf) to line-delimited JSON, walking MFN in ascending order.
Every record carries the reserved "mfn" and "active" keys ahead of its
tag map.

Example:
  ioisis mst2jsonl catalog.mst catalog.jsonl
  ioisis mst2jsonl --only-active catalog.mst -`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := createOutput(args[1])
		if err != nil {
			return err
		}
		defer out.Close()

		return runMST2JSONL(args[0], out)
	},
}

func runMST2JSONL(mstPath string, out io.Writer) error {
	opts := mst.DefaultOptions()
	if cfg.MST.Variant == "ffi" {
		opts.Variant = mst.VariantFFI
	}
	opts.Shift = uint(cfg.MST.Shift)

	reader, err := mst.Open(mstPath, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	subMode := subfield.Mode(cfg.Mode)
	subOpts := cfg.Subfield.ToOptions(cfg.WithNumber)

	bw := bufio.NewWriter(out)
	defer bw.Flush()

	it := reader.Iterate(cfg.MST.OnlyActive)
	for {
		rec, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		dict, err := record.FromFields(rec.Fields, cfg.ISOEncoding, subMode, subOpts)
		if err != nil {
			return err
		}
		withMFN := record.WithMFN(dict, rec.MFN, rec.Active)

		line, err := json.Marshal(withMFN)
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
	return nil
}

func init() {
	rootCmd.AddCommand(mst2jsonlCmd)
}
