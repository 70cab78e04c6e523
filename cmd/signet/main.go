// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// signet is the command-line front end for the Signet signature
// engine. It generates block signatures of basis files, inspects
// signature streams, and converts between the wire format and the
// CBOR sidecar cache.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/signet-sync/signet/lib/sigcache"
	"github.com/signet-sync/signet/lib/signature"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch subcommand := os.Args[1]; subcommand {
	case "sign":
		return runSign(os.Args[2:])
	case "inspect":
		return runInspect(os.Args[2:])
	case "cache":
		return runCache(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: signet <subcommand> [flags]

Subcommands:
  sign      Generate the block signature of a basis file
  inspect   Load a signature stream and print its parameters
  cache     Convert a wire signature to a CBOR sidecar (or back)

Run 'signet <subcommand> --help' for subcommand flags.
`)
}

// newLogger builds the CLI logger. Diagnostics go to stderr so
// signature bytes on stdout stay clean.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// runSign generates a signature for a basis file and writes the wire
// form to the output file (or stdout).
func runSign(args []string) error {
	var profilePath, output string
	var blockLen, strongLen uint32
	var useMD4, verbose bool

	flagSet := pflag.NewFlagSet("signet sign", pflag.ContinueOnError)
	flagSet.StringVar(&profilePath, "profile", "", "YAML profile with default signature parameters")
	flagSet.StringVarP(&output, "output", "o", "", "write the signature here instead of stdout")
	flagSet.Uint32VarP(&blockLen, "block-size", "b", 0, "basis block length in bytes")
	flagSet.Uint32VarP(&strongLen, "sum-size", "S", 0, "strong checksum length in bytes (0 = full digest)")
	flagSet.BoolVar(&useMD4, "md4", false, "use MD4 strong sums instead of BLAKE2b")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("sign takes exactly one basis file, got %d arguments", flagSet.NArg())
	}
	logger := newLogger(verbose)

	profile, err := loadProfile(profilePath)
	if err != nil {
		return err
	}
	magic, blockLen, strongLen := profile.resolve(useMD4, blockLen, strongLen)

	basisPath := flagSet.Arg(0)
	basis, err := os.Open(basisPath)
	if err != nil {
		return fmt.Errorf("opening basis file: %w", err)
	}
	defer basis.Close()

	sig, err := signature.Generate(basis, magic, blockLen, strongLen)
	if err != nil {
		return err
	}
	logger.Debug("signature generated", "basis", basisPath, "blocks", len(sig.Blocks), "block_len", sig.BlockLen, "strong_len", sig.StrongLen)

	out := os.Stdout
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer file.Close()
		out = file
	}
	if _, err := sig.WriteTo(out); err != nil {
		return err
	}
	return nil
}

// runInspect loads a signature stream (wire format) and prints its
// parameters and block count.
func runInspect(args []string) error {
	var verbose bool

	flagSet := pflag.NewFlagSet("signet inspect", pflag.ContinueOnError)
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging (logs every block)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("inspect takes exactly one signature file, got %d arguments", flagSet.NArg())
	}
	logger := newLogger(verbose)

	path := flagSet.Arg(0)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening signature file: %w", err)
	}
	defer file.Close()

	opts := []signature.LoaderOption{signature.WithLogger(logger)}
	if info, err := file.Stat(); err == nil {
		opts = append(opts, signature.WithSizeHint(info.Size()))
	}

	sig, err := signature.Load(file, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("format:          %s\n", sig.Magic)
	fmt.Printf("block length:    %d\n", sig.BlockLen)
	fmt.Printf("strong sum:      %d bytes\n", sig.StrongLen)
	fmt.Printf("blocks:          %d\n", len(sig.Blocks))
	fmt.Printf("basis size:      <= %d bytes\n", int64(sig.BlockLen)*int64(len(sig.Blocks)))
	return nil
}

// runCache converts a wire-format signature into a CBOR sidecar, or
// with --decode converts a sidecar back to the wire format.
func runCache(args []string) error {
	var output string
	var decode, verbose bool

	flagSet := pflag.NewFlagSet("signet cache", pflag.ContinueOnError)
	flagSet.StringVarP(&output, "output", "o", "", "write the result here instead of stdout")
	flagSet.BoolVar(&decode, "decode", false, "convert a sidecar back to the wire format")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("cache takes exactly one input file, got %d arguments", flagSet.NArg())
	}
	logger := newLogger(verbose)

	file, err := os.Open(flagSet.Arg(0))
	if err != nil {
		return fmt.Errorf("opening input file: %w", err)
	}
	defer file.Close()

	var sig *signature.Signature
	if decode {
		sig, err = sigcache.Open(file)
	} else {
		opts := []signature.LoaderOption{signature.WithLogger(logger)}
		if info, statErr := file.Stat(); statErr == nil {
			opts = append(opts, signature.WithSizeHint(info.Size()))
		}
		sig, err = signature.Load(file, opts...)
	}
	if err != nil {
		return err
	}

	out := os.Stdout
	if output != "" {
		created, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer created.Close()
		out = created
	}

	if decode {
		_, err = sig.WriteTo(out)
	} else {
		err = sigcache.Save(out, sig)
	}
	return err
}
