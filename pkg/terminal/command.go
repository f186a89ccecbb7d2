// Package terminal implements functions for responding to user
// input and dispatching to appropriate debug information queries.
package terminal

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cosiner/argv"

	"github.com/wasmdbg/wasmdwarf/pkg/debuginfo"
)

type cmdfunc func(t *Term, args string) error

type command struct {
	aliases []string
	helpMsg string
	cmdFn   cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands for the wasmdwarf terminal process.
type Commands struct {
	cmds []command
	di   *debuginfo.DebugInfo
}

// byFirstAlias will sort by the first
// alias of a command.
type byFirstAlias []command

func (a byFirstAlias) Len() int           { return len(a) }
func (a byFirstAlias) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byFirstAlias) Less(i, j int) bool { return a[i].aliases[0] < a[j].aliases[0] }

// DebugCommands returns a Commands struct with default commands defined.
func DebugCommands(di *debuginfo.DebugInfo) *Commands {
	c := &Commands{di: di}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: c.help, helpMsg: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{aliases: []string{"line", "l"}, cmdFn: lineCmd, helpMsg: `Maps an instruction offset to its source position.

	line <offset>

The offset is a file offset into the module, as reported by a runtime.`},
		{aliases: []string{"addr"}, cmdFn: addrCmd, helpMsg: `Maps a source position to an instruction offset.

	addr <file>:<line>

Prints the file offset of the first statement at exactly that line.`},
		{aliases: []string{"funcs"}, cmdFn: funcsCmd, helpMsg: `Print list of functions.

	funcs [<regex>]

If regex is specified only the functions matching it will be returned.`},
		{aliases: []string{"sources"}, cmdFn: sourcesCmd, helpMsg: `Print list of source files.

	sources [<regex>]

If regex is specified only the source files matching it will be returned.`},
		{aliases: []string{"vars"}, cmdFn: varsCmd, helpMsg: `Print the variables in scope at an instruction offset.

	vars <offset>

Innermost scope first; a shadowed name appears once per declaring scope.`},
		{aliases: []string{"globals"}, cmdFn: globalsCmd, helpMsg: `Print the global variables of the unit covering an instruction offset.

	globals <offset>`},
		{aliases: []string{"snapshot"}, cmdFn: snapshotCmd, helpMsg: `Load a runtime snapshot from a YAML file.

	snapshot <path>

The snapshot supplies the locals, globals, operand stack, frame base and
linear memory that print uses to decode variable values.`},
		{aliases: []string{"print", "p"}, cmdFn: printCmd, helpMsg: `Evaluate a variable against the loaded snapshot.

	print <name> <offset>

Requires a snapshot, see the snapshot command.`},
		{aliases: []string{"whatis"}, cmdFn: whatisCmd, helpMsg: `Print the type of a variable.

	whatis <name> <offset>`},
		{aliases: []string{"config"}, cmdFn: configureCmd, helpMsg: `Changes configuration parameters.

	config -list

Show all configuration parameters.

	config -save

Saves the configuration file to disk, overwriting the current configuration file.

	config <parameter> <value>

Changes the value of a configuration parameter.

	config alias <command> <alias>
	config alias <alias>

Defines <alias> as an alias of <command> or removes an alias.`},
		{aliases: []string{"exit", "quit", "q"}, cmdFn: exitCmd, helpMsg: `Exit the debugger.`},
	}

	sort.Sort(byFirstAlias(c.cmds))
	return c
}

// Merge takes aliases defined in the config struct and merges them with the
// default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
}

// ExitRequestError is returned when the user exits the terminal.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

var errNoCmd = errors.New("command not available")

func (c *Commands) find(cmdstr string) cmdfunc {
	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v.cmdFn
		}
	}
	return func(t *Term, args string) error {
		return errNoCmd
	}
}

// Call takes a command to execute.
func (c *Commands) Call(cmdstr string, t *Term) error {
	vals := split2PartsBySpace(strings.TrimSpace(cmdstr))
	if vals[0] == "" {
		return nil
	}
	args := ""
	if len(vals) > 1 {
		args = strings.TrimSpace(vals[1])
	}
	return c.find(vals[0])(t, args)
}

func split2PartsBySpace(s string) []string {
	v := strings.SplitN(s, " ", 2)
	for i := range v {
		v[i] = strings.TrimSpace(v[i])
	}
	return v
}

func (c *Commands) help(t *Term, args string) error {
	if args != "" {
		for _, cmd := range c.cmds {
			if cmd.match(args) {
				fmt.Fprintln(t.stdout, cmd.helpMsg)
				return nil
			}
		}
		return errNoCmd
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")
	w := new(tabwriter.Writer)
	w.Init(t.stdout, 0, 8, 0, '-', 0)
	for _, cmd := range c.cmds {
		h := cmd.helpMsg
		if idx := strings.Index(h, "\n"); idx >= 0 {
			h = h[:idx]
		}
		if len(cmd.aliases) > 1 {
			fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
		} else {
			fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

// codeOffset translates a module file offset into the code-section-relative
// offset the debug info is keyed by.
func (t *Term) codeOffset(arg string) (uint64, error) {
	off, err := strconv.ParseUint(arg, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %v", arg, err)
	}
	base := t.di.CodeBase()
	if off < base {
		return 0, fmt.Errorf("offset %#x is before the code section (starts at %#x)", off, base)
	}
	return off - base, nil
}

func lineCmd(t *Term, args string) error {
	if args == "" {
		return errors.New("usage: line <offset>")
	}
	off, err := t.codeOffset(args)
	if err != nil {
		return err
	}
	li := t.di.FindLineInfo(off)
	if li == nil {
		return fmt.Errorf("no line information for offset %s", args)
	}
	t.Println(fmt.Sprintf("%s:%d", li.File, li.Line), "")
	return nil
}

func addrCmd(t *Term, args string) error {
	i := strings.LastIndex(args, ":")
	if i < 0 {
		return errors.New("usage: addr <file>:<line>")
	}
	file := args[:i]
	lineno, err := strconv.Atoi(args[i+1:])
	if err != nil {
		return fmt.Errorf("invalid line number %q: %v", args[i+1:], err)
	}
	addr, ok := t.di.FindAddress(file, lineno)
	if !ok {
		return fmt.Errorf("no statement at %s", args)
	}
	fmt.Fprintf(t.stdout, "%#x\n", addr+t.di.CodeBase())
	return nil
}

func funcsCmd(t *Term, args string) error {
	var reg *regexp.Regexp
	if args != "" {
		var err error
		reg, err = regexp.Compile(args)
		if err != nil {
			return fmt.Errorf("invalid regex: %v", err)
		}
	}

	names := make([]string, 0, len(t.di.Subroutines()))
	ranges := make(map[string]string)
	for _, fn := range t.di.Subroutines() {
		if fn.Name == "" || (reg != nil && !reg.MatchString(fn.Name)) {
			continue
		}
		names = append(names, fn.Name)
		ranges[fn.Name] = fmt.Sprintf("[%#x, %#x)", fn.LowPC()+t.di.CodeBase(), fn.HighPC()+t.di.CodeBase())
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(t.stdout, "%s %s\n", name, ranges[name])
	}
	return nil
}

func sourcesCmd(t *Term, args string) error {
	var reg *regexp.Regexp
	if args != "" {
		var err error
		reg, err = regexp.Compile(args)
		if err != nil {
			return fmt.Errorf("invalid regex: %v", err)
		}
	}
	for _, file := range t.di.Sources() {
		if reg != nil && !reg.MatchString(file) {
			continue
		}
		fmt.Fprintln(t.stdout, file)
	}
	return nil
}

func varsCmd(t *Term, args string) error {
	if args == "" {
		return errors.New("usage: vars <offset>")
	}
	off, err := t.codeOffset(args)
	if err != nil {
		return err
	}
	names, err := t.di.VariableNameList(off)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(t.stdout, name)
	}
	return nil
}

func globalsCmd(t *Term, args string) error {
	if args == "" {
		return errors.New("usage: globals <offset>")
	}
	off, err := t.codeOffset(args)
	if err != nil {
		return err
	}
	names, err := t.di.GlobalVariableNameList(off)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(t.stdout, name)
	}
	return nil
}

func snapshotCmd(t *Term, args string) error {
	v, err := argv.Argv(args,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return err
	}
	if len(v) != 1 || len(v[0]) != 1 {
		return errors.New("usage: snapshot <path>")
	}
	snap, err := LoadSnapshot(v[0][0])
	if err != nil {
		return err
	}
	t.snap = snap
	fmt.Fprintf(t.stdout, "snapshot loaded: %d locals, %d globals, %d bytes of memory\n",
		len(snap.Locals), len(snap.Globals), len(snap.Memory))
	return nil
}

func printCmd(t *Term, args string) error {
	v := split2PartsBySpace(args)
	if len(v) != 2 || v[0] == "" {
		return errors.New("usage: print <name> <offset>")
	}
	if t.snap == nil {
		return errors.New("no snapshot loaded, use 'snapshot <file>' first")
	}
	off, err := t.codeOffset(v[1])
	if err != nil {
		return err
	}
	vi, err := t.di.GetVariableInfo(v[0], t.snap, off)
	if err != nil {
		return err
	}
	maxArrayValues, maxStringLen := 64, 64
	if t.conf.MaxArrayValues != nil {
		maxArrayValues = *t.conf.MaxArrayValues
	}
	if t.conf.MaxStringLen != nil {
		maxStringLen = *t.conf.MaxStringLen
	}
	val, ok := vi.FormatLimited(maxArrayValues, maxStringLen)
	if !ok {
		return fmt.Errorf("value of %s is not printable", vi.Name)
	}
	fmt.Fprintf(t.stdout, "%s = %s\n", vi.Name, val)
	if t.conf.ShowLocationExpr {
		fmt.Fprintf(t.stdout, "\tlocation: %s\n", vi.LocationExpr)
	}
	return nil
}

func whatisCmd(t *Term, args string) error {
	v := split2PartsBySpace(args)
	if len(v) != 2 || v[0] == "" {
		return errors.New("usage: whatis <name> <offset>")
	}
	if t.snap == nil {
		return errors.New("no snapshot loaded, use 'snapshot <file>' first")
	}
	off, err := t.codeOffset(v[1])
	if err != nil {
		return err
	}
	vi, err := t.di.GetVariableInfo(v[0], t.snap, off)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.stdout, "%s (%d bytes)\n", vi.Type().String(), vi.ByteSize)
	if t.conf.ShowLocationExpr {
		fmt.Fprintf(t.stdout, "\tlocation: %s\n", vi.LocationExpr)
	}
	return nil
}

func exitCmd(t *Term, args string) error {
	return ExitRequestError{}
}
