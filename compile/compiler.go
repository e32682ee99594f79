// Package compile schedules compile jobs for the invalid targets of a
// project and runs them one at a time through an external compiler.
package compile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jide.compile")

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one message from the compiler. File is empty for messages
// that do not belong to a source file.
type Diagnostic struct {
	File     string
	Line     int
	Message  string
	Severity Severity
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Severity, d.Message)
}

// Options configure one compiler invocation.
type Options struct {
	Classpath   []string
	OutDir      string
	Debug       bool
	Deprecation bool
	Flags       []string
}

// Compiler compiles a set of source files together. report is called for
// every diagnostic before Compile returns. A false result with a nil error
// means the compiler ran and rejected the sources.
type Compiler interface {
	Compile(ctx context.Context, files []string, opts Options, report func(Diagnostic)) (bool, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(ctx context.Context, files []string, opts Options, report func(Diagnostic)) (bool, error)

func (f CompilerFunc) Compile(ctx context.Context, files []string, opts Options, report func(Diagnostic)) (bool, error) {
	return f(ctx, files, opts, report)
}

// JavacCompiler runs javac, or a compatible command, as a subprocess.
type JavacCompiler struct {
	// Command defaults to "javac".
	Command string
}

func (c *JavacCompiler) command() string {
	if c.Command == "" {
		return "javac"
	}
	return c.Command
}

func javacArgs(files []string, opts Options) []string {
	var args []string
	if opts.OutDir != "" {
		args = append(args, "-d", opts.OutDir)
	}
	if len(opts.Classpath) > 0 {
		args = append(args, "-cp", strings.Join(opts.Classpath, string(os.PathListSeparator)))
	}
	if opts.Debug {
		args = append(args, "-g")
	}
	if opts.Deprecation {
		args = append(args, "-deprecation")
	}
	args = append(args, opts.Flags...)
	return append(args, files...)
}

func (c *JavacCompiler) Compile(ctx context.Context, files []string, opts Options, report func(Diagnostic)) (bool, error) {
	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
			return false, fmt.Errorf("create %s: %w", opts.OutDir, err)
		}
	}

	cmd := exec.CommandContext(ctx, c.command(), javacArgs(files, opts)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()

	if err := ParseDiagnostics(&out, report); err != nil {
		return false, fmt.Errorf("read compiler output: %w", err)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && ctx.Err() == nil {
			return false, nil
		}
		return false, fmt.Errorf("run %s: %w", c.command(), runErr)
	}
	return true, nil
}

var (
	diagnosticHeader = regexp.MustCompile(`^(.+\.java):(\d+): (error|warning): (.*)$`)
	diagnosticCount  = regexp.MustCompile(`^\d+ (errors?|warnings?)$`)
)

// maxContinuation is the number of indented lines that may extend a
// diagnostic, as in "found: X" followed by "required: Y".
const maxContinuation = 2

// ParseDiagnostics reads javac output. A "file:line: error|warning: msg"
// line starts a diagnostic that up to two following indented lines extend.
// Echoed source lines and their caret markers are skipped, as are the
// error and warning counts. Any other line is reported without a file.
func ParseDiagnostics(r io.Reader, report func(Diagnostic)) error {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return err
	}

	var cur *Diagnostic
	extra := 0
	flush := func() {
		if cur != nil {
			report(*cur)
			cur = nil
		}
	}

	for i, line := range lines {
		if m := diagnosticHeader.FindStringSubmatch(line); m != nil {
			flush()
			n, _ := strconv.Atoi(m[2])
			cur = &Diagnostic{File: m[1], Line: n, Message: m[4]}
			if m[3] == "warning" {
				cur.Severity = SeverityWarning
			}
			extra = 0
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if isCaret(line) || (i+1 < len(lines) && isCaret(lines[i+1])) {
			continue
		}
		if cur != nil && (line[0] == ' ' || line[0] == '\t') {
			if extra < maxContinuation {
				cur.Message += "\n" + strings.TrimSpace(line)
				extra++
			}
			continue
		}

		flush()
		if diagnosticCount.MatchString(line) {
			continue
		}
		d := Diagnostic{Message: line}
		if strings.HasPrefix(line, "warning:") || strings.HasPrefix(line, "Note:") {
			d.Severity = SeverityWarning
		}
		report(d)
	}
	flush()
	return nil
}

func isCaret(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && strings.Trim(trimmed, "^") == ""
}
