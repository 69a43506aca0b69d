package compiler

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"

	"github.com/vk/bndl/internal/ctxlog"
)

// DefaultDeclarationCommand emits .d.ts files only; --outDir and --project
// are appended per run.
var DefaultDeclarationCommand = []string{"npx", "tsc", "-d", "--emitDeclarationOnly"}

// DeclarationGenerator runs an external tool that writes declaration files.
type DeclarationGenerator struct {
	Command []string
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewDeclarationGenerator returns a generator running command, or
// DefaultDeclarationCommand when command is empty. Both output streams of
// the tool go to out, which defaults to os.Stderr: the tool's output is
// diagnostics, never build output.
func NewDeclarationGenerator(command []string, out io.Writer) *DeclarationGenerator {
	if len(command) == 0 {
		command = DefaultDeclarationCommand
	}
	if out == nil {
		out = os.Stderr
	}
	return &DeclarationGenerator{
		Command: slices.Clone(command),
		Stdout:  out,
		Stderr:  out,
	}
}

// Generate writes declarations for project into outDir and blocks until the
// tool exits.
func (g *DeclarationGenerator) Generate(ctx context.Context, project, outDir string) error {
	logger := ctxlog.FromContext(ctx)
	if len(g.Command) == 0 {
		return fmt.Errorf("no declaration command configured")
	}

	args := append(slices.Clone(g.Command[1:]), "--outDir", outDir, "--project", project)
	cmd := exec.CommandContext(ctx, g.Command[0], args...)
	cmd.Dir = g.Dir
	cmd.Stdout = g.Stdout
	cmd.Stderr = g.Stderr

	logger.Debug("Generating declarations.", "command", g.Command[0], "args", args)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("declaration generator %q failed: %w", g.Command[0], err)
	}
	return nil
}
