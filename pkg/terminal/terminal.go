package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/derekparker/trie"
	"github.com/go-delve/liner"
	"github.com/mattn/go-isatty"

	"github.com/wasmdbg/wasmdwarf/pkg/config"
	"github.com/wasmdbg/wasmdwarf/pkg/debuginfo"
)

const (
	historyFile                 string = ".wasmdwarf_history"
	terminalHighlightEscapeCode string = "\033[%2dm"
	terminalResetEscapeCode     string = "\033[0m"
)

const (
	ansiBlack   = 30
	ansiBlue    = 34
	ansiBrWhite = 97
)

// Term represents the terminal running wasmdwarf.
type Term struct {
	di     *debuginfo.DebugInfo
	conf   *config.Config
	prompt string
	line   *liner.State
	cmds   *Commands
	dumb   bool
	stdout io.Writer

	// snap is the runtime snapshot loaded by the snapshot command, consulted
	// by print and whatis.
	snap *debuginfo.RuntimeSnapshot
}

// New returns a new Term attached to the debug information of one module.
func New(di *debuginfo.DebugInfo, conf *config.Config) *Term {
	cmds := DebugCommands(di)
	if conf != nil && conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}

	if conf == nil {
		conf = &config.Config{}
	}

	var w io.Writer

	dumb := strings.ToLower(os.Getenv("TERM")) == "dumb" || !isatty.IsTerminal(os.Stdout.Fd())
	if dumb {
		w = os.Stdout
	} else {
		w = getColorableWriter()
	}

	if conf.SourceListLineColor < ansiBlack ||
		conf.SourceListLineColor > ansiBrWhite {
		conf.SourceListLineColor = ansiBlue
	}

	return &Term{
		di:     di,
		conf:   conf,
		prompt: "(wasmdwarf) ",
		line:   liner.NewLiner(),
		cmds:   cmds,
		dumb:   dumb,
		stdout: w,
	}
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	t.line.Close()
}

// completions indexes every completable word: command aliases, function
// names and source file paths.
func (t *Term) completions() *trie.Trie {
	tr := trie.New()
	for _, cmd := range t.cmds.cmds {
		for _, alias := range cmd.aliases {
			tr.Add(alias, nil)
		}
	}
	for _, fn := range t.di.Subroutines() {
		if fn.Name != "" {
			tr.Add(fn.Name, nil)
		}
	}
	for _, file := range t.di.Sources() {
		tr.Add(file, nil)
	}
	return tr
}

// Run begins running wasmdwarf in the terminal.
func (t *Term) Run() (int, error) {
	defer t.Close()

	completer := t.completions()
	t.line.SetCompleter(func(line string) []string {
		i := strings.LastIndex(line, " ")
		if i < 0 {
			return completer.PrefixSearch(strings.ToLower(line))
		}
		prefix, word := line[:i+1], line[i+1:]
		matches := completer.PrefixSearch(word)
		c := make([]string, len(matches))
		for j := range matches {
			c[j] = prefix + matches[j]
		}
		return c
	})

	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Printf("Unable to load history file: %v.", err)
	}

	f, err := os.Open(fullHistoryFile)
	if err != nil {
		f, err = os.Create(fullHistoryFile)
		if err != nil {
			fmt.Printf("Unable to open history file: %v. History will not be saved for this session.", err)
		}
	}

	t.line.ReadHistory(f)
	f.Close()
	fmt.Println("Type 'help' for list of commands.")

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Println("exit")
				return t.handleExit()
			}
			return 1, fmt.Errorf("Prompt for input failed.\n")
		}

		if err := t.cmds.Call(cmdstr, t); err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}
			fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
		}
	}
}

// Println prints a line to the terminal, the prefix colored with the
// configured source-list color.
func (t *Term) Println(prefix, str string) {
	if !t.dumb {
		terminalColorEscapeCode := fmt.Sprintf(terminalHighlightEscapeCode, t.conf.SourceListLineColor)
		prefix = fmt.Sprintf("%s%s%s", terminalColorEscapeCode, prefix, terminalResetEscapeCode)
	}
	fmt.Fprintf(t.stdout, "%s%s\n", prefix, str)
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) handleExit() (int, error) {
	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Println("Error saving history file:", err)
	} else {
		if f, err := os.OpenFile(fullHistoryFile, os.O_RDWR, 0666); err == nil {
			_, err = t.line.WriteHistory(f)
			if err != nil {
				fmt.Println("readline history error:", err)
			}
			f.Close()
		}
	}
	return 0, nil
}
