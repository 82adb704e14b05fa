/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bireme/ioisis-go/pkg/config"
	"github.com/bireme/ioisis-go/pkg/ioerr"
)

// Exit codes per spec §6: 0 success, 1 format error, 2 I/O error, 64
// usage error.
const (
	ExitOK          = 0
	ExitFormatError = 1
	ExitIOError     = 2
	ExitUsageError  = 64
)

var (
	cfgFile    string
	jsonlEnc   string
	isoEnc     string
	mode       string
	noNumber   bool
	onlyActive bool

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ioisis",
	Short: "Convert bibliographic records between ISO 2709, CDS/ISIS MST and JSONL",
	Long: `ioisis converts bibliographic records between the ISO 2709
interchange format, the CDS/ISIS Master File (MST+XRF), and
line-delimited JSON (JSONL).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded := config.DefaultConfig()
		if cfgFile != "" {
			c, err := config.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			loaded = c
		}
		if jsonlEnc != "" {
			loaded.JSONLEncoding = jsonlEnc
		}
		if isoEnc != "" {
			loaded.ISOEncoding = isoEnc
		}
		if mode != "" {
			loaded.Mode = mode
		}
		if noNumber {
			loaded.WithNumber = false
		}
		if onlyActive {
			loaded.MST.OnlyActive = true
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ioisis:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	switch err.(type) {
	case *ioerr.FormatError, *ioerr.TruncatedError, *ioerr.OverflowError, *ioerr.XrfError, *ioerr.EncodingError:
		return ExitFormatError
	case *ioerr.IOError:
		return ExitIOError
	default:
		return ExitUsageError
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&jsonlEnc, "jenc", "", "JSONL text encoding (default utf-8); stored in the config, but JSONL is always read and written as UTF-8")
	rootCmd.PersistentFlags().StringVar(&isoEnc, "ienc", "", "ISO/MST byte encoding (default cp1252)")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "", "subfield mode: field, pairs or nest (default field)")
	rootCmd.PersistentFlags().BoolVar(&noNumber, "no-number", false, "suppress the '#' occurrence-index pair in pairs/nest mode")
	rootCmd.PersistentFlags().BoolVar(&onlyActive, "only-active", false, "MST only: skip logically deleted records")
}

// openInput resolves an input path, treating "-" as stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, ioerr.NewIOError("open input", err)
	}
	return f, nil
}

// createOutput resolves an output path, treating "-" as stdout.
func createOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, ioerr.NewIOError("create output", err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
