package tools

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/kai/internal/exec"
	"github.com/ShayCichocki/kai/pkg/models"
)

// GoCompileName is the registered name of the compile tool.
const GoCompileName = "go_compile"

const scratchModule = "module kaiscratch\n\ngo 1.22\n"

// GoCompile type-checks a Go source file in a scratch module. Without a Go
// toolchain on PATH it falls back to a syntax-only parse.
type GoCompile struct {
	runner exec.CommandRunner
}

// NewGoCompile creates the compile tool.
func NewGoCompile(runner exec.CommandRunner) *GoCompile {
	return &GoCompile{runner: runner}
}

func (g *GoCompile) Name() string { return GoCompileName }

func (g *GoCompile) Description() string {
	return "Compile and vet a single Go source file. Returns compiler diagnostics on failure."
}

func (g *GoCompile) Parameters() []Parameter {
	return []Parameter{
		{Name: "code", Description: "Complete Go source file", Required: true},
		{Name: "filename", Description: "File name, e.g. cache.go"},
	}
}

func (g *GoCompile) Execute(ctx context.Context, input map[string]string) (models.ToolResult, error) {
	if name := missing(g.Parameters(), input); name != "" {
		return models.Failure{Error: fmt.Sprintf("missing parameter: %s", name)}, nil
	}
	filename := filepath.Base(input["filename"])
	if filename == "." || filename == "/" || !strings.HasSuffix(filename, ".go") {
		filename = "main.go"
	}

	if g.runner == nil || !g.runner.Available("go") {
		return syntaxCheck(filename, input["code"]), nil
	}

	dir, err := scratchDir(map[string]string{filename: input["code"]})
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	out, err := g.runner.Run(ctx, dir, "go", "vet", "./...")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return models.Failure{Error: truncate(strings.TrimSpace(string(out))), Retryable: true}, nil
	}
	return models.Success{Output: "compiled " + filename}, nil
}

// syntaxCheck parses src and reports syntax errors only.
func syntaxCheck(filename, src string) models.ToolResult {
	if _, err := parser.ParseFile(token.NewFileSet(), filename, src, parser.AllErrors); err != nil {
		return models.Failure{Error: err.Error(), Retryable: true}
	}
	return models.Success{
		Output: "syntax ok (go toolchain not found, type checking skipped)",
		Data:   map[string]any{"syntax_only": true},
	}
}

// scratchDir writes files into a fresh module directory.
func scratchDir(files map[string]string) (string, error) {
	dir, err := os.MkdirTemp("", "kai-scratch-*")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	files["go.mod"] = scratchModule
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}
	return dir, nil
}

var _ Tool = (*GoCompile)(nil)
