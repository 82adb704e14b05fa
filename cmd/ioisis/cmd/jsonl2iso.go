/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/bireme/ioisis-go/pkg/codec"
	"github.com/bireme/ioisis-go/pkg/ioerr"
	"github.com/bireme/ioisis-go/pkg/isostream"
	"github.com/bireme/ioisis-go/pkg/linewrap"
	"github.com/bireme/ioisis-go/pkg/record"
	"github.com/bireme/ioisis-go/pkg/subfield"
)

// jsonl2isoCmd converts JSONL back to an ISO 2709 byte stream.
var jsonl2isoCmd = &cobra.Command{
	Use:   "jsonl2iso <input> <output>",
	Short: "Convert JSONL to an ISO 2709 file",
	Long: `Convert line-delimited JSON records back to ISO 2709. Reserved
"mfn"/"active" keys, if present from a prior mst2jsonl conversion, are
dropped since ISO 2709 has no field to carry them.

Example:
  ioisis jsonl2iso records.jsonl records.iso`,
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

		return runJSONL2ISO(in, out)
	},
}

func runJSONL2ISO(in io.Reader, out io.Writer) error {
	geom := cfg.Geometry.ToGeometry()
	wrapped := linewrap.NewWriter(out, cfg.LineWrap.ToOptions())
	writer := isostream.NewWriter(wrapped, geom)

	subMode := subfield.Mode(cfg.Mode)
	subOpts := cfg.Subfield.ToOptions(cfg.WithNumber)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		dict := record.NewDict()
		if err := json.Unmarshal(line, dict); err != nil {
			return ioerr.NewFormatError(0, "invalid JSONL line: %v", err)
		}
		_, _, _, rest := record.SplitMFN(dict)

		fields, err := record.ToFields(rest, cfg.ISOEncoding, subMode, subOpts)
		if err != nil {
			return err
		}
		padTags(fields, geom.TagLenOrDefault())
		rec := codec.Record{Leader: codec.DefaultLeader(), Fields: fields}
		if err := writer.WriteRecord(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return ioerr.NewIOError("read jsonl", err)
	}
	return wrapped.Close()
}

// padTags zero-pads each field's tag on the left to width, when it's
// shorter, matching the source tool's habit of accepting bare numeric
// JSONL tags ("245") and widening them to the ISO directory's fixed
// tag width.
func padTags(fields []codec.Field, width int) {
	for i, f := range fields {
		if len(f.Tag) >= width {
			continue
		}
		padded := make([]byte, width)
		for j := range padded {
			padded[j] = '0'
		}
		copy(padded[width-len(f.Tag):], f.Tag)
		fields[i].Tag = padded
	}
}

func init() {
	rootCmd.AddCommand(jsonl2isoCmd)
}
