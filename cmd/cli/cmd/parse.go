package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/nasmgo/core/internal/cliscan"
	"github.com/nasmgo/core/internal/debugcontext"
	"github.com/nasmgo/core/internal/extop"
	"github.com/nasmgo/core/internal/instr"
	"github.com/nasmgo/core/internal/lineparser"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:     "parse [source-file]",
	GroupID: "core",
	Short:   "Parse assembly source lines into instruction records",
	Long: `parse runs the line parser against either a single line passed with
--line, or a source file given as an argument (one record printed per
non-empty line). It uses a small built-in mnemonic table sufficient for
demonstration; it does not assemble or link anything.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runParse(cmd, args); err != nil {
			cmd.PrintErrln("Error:", err)
			os.Exit(1)
		}
	},
}

var parseLineFlag string
var parseBits int

func init() {
	parseCmd.Flags().StringVar(&parseLineFlag, "line", "", "parse a single line instead of a file")
	parseCmd.Flags().IntVar(&parseBits, "bits", 64, "addressing mode width (16, 32, or 64)")
}

func runParse(cmd *cobra.Command, args []string) error {
	if parseLineFlag != "" {
		return parseAndPrint(parseLineFlag, 1, "<line>")
	}

	if len(args) < 1 {
		return fmt.Errorf("no source file given; pass a file or use --line")
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if text == "" {
			continue
		}
		if err := parseAndPrint(text, lineNo, path); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// parseAndPrint runs the line parser against a single source line and
// renders the resulting record and any diagnostics raised against it.
func parseAndPrint(line string, lineNo int, filePath string) error {
	mnemonics := cliscan.DemoTable()
	diagCtx := debugcontext.NewDebugContext(filePath)
	diagCtx.SetPhase("parse")

	scan := cliscan.New(line, lineNo, mnemonics.Names())
	extOp := extop.NewParser(scan, cliscan.Evaluator{}, cliscan.FloatEncoder{}, cliscan.StringTransform{}, cliscan.Diagnostics{Ctx: diagCtx})
	p := lineparser.NewParser(scan, cliscan.Evaluator{}, cliscan.NewSymbolTable(), cliscan.Diagnostics{Ctx: diagCtx}, mnemonics, extOp, parseBits)

	var rec instr.Record
	p.ParseLine(&rec)

	printRecord(lineNo, line, &rec)
	for _, e := range diagCtx.Entries() {
		fmt.Println("  " + e.String())
	}
	return nil
}

func printRecord(lineNo int, line string, rec *instr.Record) {
	fmt.Printf("%d: %s\n", lineNo, line)
	if rec.Opcode == instr.INone {
		fmt.Println("  (no instruction recognised)")
		return
	}
	if rec.HasLabel {
		fmt.Printf("  label: %s\n", rec.Label)
	}
	fmt.Printf("  opcode: %d\n", rec.Opcode)
	for i := 0; i < rec.OperandCount; i++ {
		op := rec.Operands[i]
		fmt.Printf("  operand[%d]: type=%d base=%d index=%d scale=%d offset=%d\n",
			i, op.Type, op.BaseReg, op.IndexReg, op.Scale, op.Offset)
	}
}
