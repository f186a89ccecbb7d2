// Package cmds implements the command tree of the wasmdwarf binary.
package cmds

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wasmdbg/wasmdwarf/pkg/config"
	"github.com/wasmdbg/wasmdwarf/pkg/debuginfo"
	"github.com/wasmdbg/wasmdwarf/pkg/logflags"
	"github.com/wasmdbg/wasmdwarf/pkg/terminal"
	"github.com/wasmdbg/wasmdwarf/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// snapshotPath is the runtime snapshot consulted by the print command.
	snapshotPath string

	conf *config.Config
)

const wasmdwarfCommandLongDesc = `wasmdwarf extracts the DWARF debug information embedded in compiled
WebAssembly modules.

It maps instruction offsets to source positions and back, lists the
functions, source files and variables a module declares, and decodes
variable values against a snapshot of the runtime's state.`

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()

	rootCommand := &cobra.Command{
		Use:   "wasmdwarf",
		Short: "wasmdwarf inspects the debug information of WebAssembly modules.",
		Long:  wasmdwarfCommandLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logflags.Setup(log, logOutput)
		},
	}

	logFlags := pflag.NewFlagSet("logging", pflag.ContinueOnError)
	logFlags.BoolVar(&log, "log", false, "Enable debug logging.")
	logFlags.StringVar(&logOutput, "log-output", "", "Comma separated list of components that should produce debug output (debuginfo, debuglineerr, locate, wasm).")
	rootCommand.PersistentFlags().AddFlagSet(logFlags)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wasmdwarf version: %s\n", version.WasmdwarfVersion)
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "inspect <module.wasm>",
		Short: "Open an interactive session on a module's debug information.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			di, err := open(args[0])
			if err != nil {
				return err
			}
			status, err := terminal.New(di, conf).Run()
			if err != nil {
				return err
			}
			os.Exit(status)
			return nil
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "line <module.wasm> <offset>",
		Short: "Map an instruction offset to its source position.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			di, err := open(args[0])
			if err != nil {
				return err
			}
			off, err := codeOffset(di, args[1])
			if err != nil {
				return err
			}
			li := di.FindLineInfo(off)
			if li == nil {
				return fmt.Errorf("no line information for offset %s", args[1])
			}
			fmt.Printf("%s:%d\n", li.File, li.Line)
			return nil
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "addr <module.wasm> <file>:<line>",
		Short: "Map a source position to an instruction offset.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			di, err := open(args[0])
			if err != nil {
				return err
			}
			i := strings.LastIndex(args[1], ":")
			if i < 0 {
				return errors.New("location must be <file>:<line>")
			}
			lineno, err := strconv.Atoi(args[1][i+1:])
			if err != nil {
				return fmt.Errorf("invalid line number %q: %v", args[1][i+1:], err)
			}
			addr, ok := di.FindAddress(args[1][:i], lineno)
			if !ok {
				return fmt.Errorf("no statement at %s", args[1])
			}
			fmt.Printf("%#x\n", addr+di.CodeBase())
			return nil
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "funcs <module.wasm> [regex]",
		Short: "Print the functions described by the debug information.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			di, err := open(args[0])
			if err != nil {
				return err
			}
			reg, err := optionalRegex(args)
			if err != nil {
				return err
			}
			names := []string{}
			for _, fn := range di.Subroutines() {
				if fn.Name != "" && (reg == nil || reg.MatchString(fn.Name)) {
					names = append(names, fn.Name)
				}
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "sources <module.wasm> [regex]",
		Short: "Print the source files referenced by the line tables.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			di, err := open(args[0])
			if err != nil {
				return err
			}
			reg, err := optionalRegex(args)
			if err != nil {
				return err
			}
			for _, file := range di.Sources() {
				if reg == nil || reg.MatchString(file) {
					fmt.Println(file)
				}
			}
			return nil
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "vars <module.wasm> <offset>",
		Short: "Print the variables in scope at an instruction offset.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			di, err := open(args[0])
			if err != nil {
				return err
			}
			off, err := codeOffset(di, args[1])
			if err != nil {
				return err
			}
			names, err := di.VariableNameList(off)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "globals <module.wasm> <offset>",
		Short: "Print the globals of the unit covering an instruction offset.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			di, err := open(args[0])
			if err != nil {
				return err
			}
			off, err := codeOffset(di, args[1])
			if err != nil {
				return err
			}
			names, err := di.GlobalVariableNameList(off)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	})

	printCommand := &cobra.Command{
		Use:   "print <module.wasm> <name> <offset>",
		Short: "Decode a variable's value against a runtime snapshot.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapshotPath == "" {
				return errors.New("print requires --snapshot")
			}
			di, err := open(args[0])
			if err != nil {
				return err
			}
			snap, err := terminal.LoadSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			off, err := codeOffset(di, args[2])
			if err != nil {
				return err
			}
			vi, err := di.GetVariableInfo(args[1], snap, off)
			if err != nil {
				return err
			}
			maxArrayValues, maxStringLen := 64, 64
			if conf.MaxArrayValues != nil {
				maxArrayValues = *conf.MaxArrayValues
			}
			if conf.MaxStringLen != nil {
				maxStringLen = *conf.MaxStringLen
			}
			val, ok := vi.FormatLimited(maxArrayValues, maxStringLen)
			if !ok {
				return fmt.Errorf("value of %s is not printable", vi.Name)
			}
			fmt.Printf("%s = %s\n", vi.Name, val)
			if conf.ShowLocationExpr {
				fmt.Printf("\tlocation: %s\n", vi.LocationExpr)
			}
			return nil
		},
	}
	printCommand.Flags().StringVar(&snapshotPath, "snapshot", "", "Path of the runtime snapshot YAML file.")
	rootCommand.AddCommand(printCommand)

	return rootCommand
}

func open(path string) (*debuginfo.DebugInfo, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return debuginfo.New(data)
}

// codeOffset translates a module file offset into the code-section-relative
// offset the debug info is keyed by.
func codeOffset(di *debuginfo.DebugInfo, arg string) (uint64, error) {
	off, err := strconv.ParseUint(arg, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %v", arg, err)
	}
	if off < di.CodeBase() {
		return 0, fmt.Errorf("offset %#x is before the code section (starts at %#x)", off, di.CodeBase())
	}
	return off - di.CodeBase(), nil
}

func optionalRegex(args []string) (*regexp.Regexp, error) {
	if len(args) < 2 {
		return nil, nil
	}
	reg, err := regexp.Compile(args[1])
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %v", err)
	}
	return reg, nil
}
