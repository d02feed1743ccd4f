package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shade/internal/ir"
	"shade/internal/irbin"
	"shade/internal/irgen"
)

func newGenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen [flags] -o <file.tirb>",
		Short: "Generate a random valid IR module",
		Long:  "gen builds a deterministic pseudo-random module from a seed, validates it and writes its binary encoding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGen(cmd)
		},
	}
	f := cmd.Flags()
	f.StringP("output", "o", "", "output file")
	f.Uint64("seed", 1, "generator seed")
	f.Int("funcs", 3, "helper functions besides the entry point")
	f.Int("depth", 3, "maximum control nesting")
	f.Int("stmts", 6, "maximum statements per block")
	f.Bool("no-globals", false, "do not emit module-scope variables")
	f.Bool("dump", false, "print the disassembly to stdout")
	return cmd
}

func (a *app) runGen(cmd *cobra.Command) error {
	f := cmd.Flags()
	output, err := f.GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	dump, err := f.GetBool("dump")
	if err != nil {
		return fmt.Errorf("failed to get dump flag: %w", err)
	}
	if output == "-" {
		return errors.New("refusing to write binary IR to stdout; use --dump for text")
	}
	if output == "" && !dump {
		return errors.New("no output: pass -o <file.tirb> or --dump")
	}

	var opts irgen.Options
	if opts.Seed, err = f.GetUint64("seed"); err != nil {
		return fmt.Errorf("failed to get seed flag: %w", err)
	}
	if opts.Funcs, err = f.GetInt("funcs"); err != nil {
		return fmt.Errorf("failed to get funcs flag: %w", err)
	}
	if opts.MaxDepth, err = f.GetInt("depth"); err != nil {
		return fmt.Errorf("failed to get depth flag: %w", err)
	}
	if opts.MaxStmts, err = f.GetInt("stmts"); err != nil {
		return fmt.Errorf("failed to get stmts flag: %w", err)
	}
	if opts.NoGlobals, err = f.GetBool("no-globals"); err != nil {
		return fmt.Errorf("failed to get no-globals flag: %w", err)
	}

	idx := a.timer.Begin("generate")
	m, err := irgen.Generate(opts)
	a.timer.End(idx, fmt.Sprintf("seed %d", opts.Seed))
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if err := ir.Validate(m, ir.Options{}); err != nil {
		return fmt.Errorf("generated module is invalid (seed %d): %w", opts.Seed, err)
	}
	if dump {
		if err := ir.DumpModule(cmd.OutOrStdout(), m, ir.DumpOptions{}); err != nil {
			return err
		}
	}
	if output == "" {
		return nil
	}
	idx = a.timer.Begin("encode")
	data, err := irbin.Marshal(m)
	a.timer.End(idx, output)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return writeOutput(cmd.OutOrStdout(), output, data)
}
