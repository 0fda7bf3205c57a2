package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/nasmgo/core/internal/gen"
	"github.com/nasmgo/core/internal/insndb"
	"github.com/spf13/cobra"
)

var gentablesCmd = &cobra.Command{
	Use:     "gentables",
	GroupID: "core",
	Short:   "Compile an insns.dat-format database into bytecode and tables",
	Long: `gentables reads an insns.dat-format instruction database, expands its
relaxed-form and conditional-form shorthand, and compiles the result into a
bytecode pool, per-mnemonic operand templates, a disassembly index, and the
mnemonic enumeration — the outputs the historical insns.dat generator
produced as insnsb.c/insnsa.c/insnsd.c/insnsi.h/insnsn.c, rendered here as
Go source instead of C. The disassembly index is printed only as a one-line
summary comment.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runGentables(cmd); err != nil {
			cmd.PrintErrln("Error:", err)
			os.Exit(1)
		}
	},
}

var (
	gtDatPath string
	gtBytes   bool
	gtTemplates bool
	gtDisasm  bool
	gtIndex   bool
	gtNames   bool
	gtFlagsH  bool
	gtFlagsC  bool
)

func init() {
	gentablesCmd.Flags().StringVar(&gtDatPath, "dat", "", "path to the insns.dat-format database (required)")
	gentablesCmd.Flags().BoolVarP(&gtBytes, "b", "b", false, "emit the bytecode pool (insnsb.c equivalent)")
	gentablesCmd.Flags().BoolVarP(&gtTemplates, "a", "a", false, "emit the per-mnemonic operand templates (insnsa.c equivalent)")
	gentablesCmd.Flags().BoolVarP(&gtDisasm, "d", "d", false, "emit a one-line summary of the disassembly index (prefix-class and VEX-key counts); the tables themselves are not printed")
	gentablesCmd.Flags().BoolVarP(&gtIndex, "i", "i", false, "emit the mnemonic enumeration (insnsi.h equivalent)")
	gentablesCmd.Flags().BoolVarP(&gtNames, "n", "n", false, "emit the mnemonic name table (insnsn.c equivalent)")
	gentablesCmd.Flags().BoolVar(&gtFlagsH, "fh", false, "emit the flag vocabulary as a Go const block")
	gentablesCmd.Flags().BoolVar(&gtFlagsC, "fc", false, "emit the flag vocabulary as a Go initializer array")
}

func runGentables(cmd *cobra.Command) error {
	if gtDatPath == "" {
		return fmt.Errorf("--dat is required")
	}

	f, err := os.Open(gtDatPath)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", gtDatPath, err)
	}
	defer f.Close()

	lines, _, err := insndb.Read(f)
	if err != nil {
		return fmt.Errorf("failed to read database: %w", err)
	}

	var patterns []insndb.Pattern
	for _, l := range lines {
		var expanded []insndb.Pattern
		if strings.Contains(l.Mnemonic, "cc") {
			expanded, err = insndb.ExpandConditional(l)
		} else {
			expanded, err = insndb.ExpandRelaxed(l)
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", l.SourceLine, err)
		}
		patterns = append(patterns, expanded...)
	}

	table, err := gen.Build(patterns)
	if err != nil {
		return fmt.Errorf("failed to build tables: %w", err)
	}

	any := false
	if gtBytes {
		any = true
		emitBytecodes(table)
	}
	if gtTemplates {
		any = true
		emitTemplates(table)
	}
	if gtDisasm {
		any = true
		emitDisasm(table)
	}
	if gtIndex {
		any = true
		emitIndex(table)
	}
	if gtNames {
		any = true
		emitNames(table)
	}
	if gtFlagsH {
		any = true
		emitFlagsH(table)
	}
	if gtFlagsC {
		any = true
		emitFlagsC(table)
	}
	if !any {
		fmt.Printf("compiled %d patterns into %d mnemonics, %d bytecode bytes\n",
			len(patterns), len(table.OpcodeEnum()), len(table.Bytecodes()))
	}
	return nil
}

func emitBytecodes(t *gen.Table) {
	fmt.Println("var bytecodePool = []byte{")
	b := t.Bytecodes()
	for i := 0; i < len(b); i += 12 {
		end := i + 12
		if end > len(b) {
			end = len(b)
		}
		fmt.Print("\t")
		for _, v := range b[i:end] {
			fmt.Printf("0x%02x, ", v)
		}
		fmt.Println()
	}
	fmt.Println("}")
}

func emitTemplates(t *gen.Table) {
	fmt.Println("var operandTemplates = map[string][]ItemTemplate{")
	for _, name := range t.Names() {
		fmt.Printf("\t%q: {\n", name)
		for _, tmpl := range t.Templates()[name] {
			fmt.Printf("\t\t{Operands: %#v, BytecodeOffset: %d, Flags: %#v},\n",
				tmpl.Operands, tmpl.BytecodeOffset, tmpl.Flags)
		}
		fmt.Println("\t},")
	}
	fmt.Println("}")
}

func emitDisasm(t *gen.Table) {
	idx := t.DisasmTables()
	fmt.Printf("// disassembly index: %d prefix classes, %d vex-style starting sequences\n",
		len(idx.Tables), len(idx.VexTable))
}

func emitIndex(t *gen.Table) {
	fmt.Println("type Opcode int")
	fmt.Println("const (")
	fmt.Println("\tI_none Opcode = iota - 1")
	for _, name := range t.OpcodeEnum() {
		fmt.Printf("\tI_%s\n", name)
	}
	fmt.Println(")")
}

func emitNames(t *gen.Table) {
	fmt.Println("var opcodeNames = []string{")
	for _, name := range t.OpcodeEnum() {
		fmt.Printf("\t%q,\n", name)
	}
	fmt.Println("}")
}

func emitFlagsH(t *gen.Table) {
	fmt.Println("const (")
	for i, flag := range t.Flags() {
		fmt.Printf("\tIF_%s = %d\n", flag, i)
	}
	fmt.Println(")")
}

func emitFlagsC(t *gen.Table) {
	fmt.Println("var flagNames = []string{")
	for _, flag := range t.Flags() {
		fmt.Printf("\t%q,\n", flag)
	}
	fmt.Println("}")
}
