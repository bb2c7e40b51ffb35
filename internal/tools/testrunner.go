package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/kai/internal/exec"
	"github.com/ShayCichocki/kai/pkg/models"
)

// RunTestsName is the registered name of the test tool.
const RunTestsName = "run_tests"

// RunTests runs a Go test file against a source file in a scratch module.
type RunTests struct {
	runner exec.CommandRunner
}

// NewRunTests creates the test tool.
func NewRunTests(runner exec.CommandRunner) *RunTests {
	return &RunTests{runner: runner}
}

func (r *RunTests) Name() string { return RunTestsName }

func (r *RunTests) Description() string {
	return "Run Go tests. Provide the source file and its _test.go file; returns go test output."
}

func (r *RunTests) Parameters() []Parameter {
	return []Parameter{
		{Name: "source_code", Description: "Code under test", Required: true},
		{Name: "test_code", Description: "Test file contents", Required: true},
		{Name: "source_filename", Description: "Source file name (default main.go)"},
		{Name: "test_filename", Description: "Test file name (default derived from source)"},
	}
}

func (r *RunTests) Execute(ctx context.Context, input map[string]string) (models.ToolResult, error) {
	if name := missing(r.Parameters(), input); name != "" {
		return models.Failure{Error: fmt.Sprintf("missing parameter: %s", name)}, nil
	}

	src := filepath.Base(input["source_filename"])
	if !strings.HasSuffix(src, ".go") || strings.HasSuffix(src, "_test.go") {
		src = "main.go"
	}
	test := filepath.Base(input["test_filename"])
	if !strings.HasSuffix(test, "_test.go") {
		test = strings.TrimSuffix(src, ".go") + "_test.go"
	}

	if r.runner == nil || !r.runner.Available("go") {
		return models.Success{
			Output: "tests skipped: go toolchain not found",
			Data:   map[string]any{"skipped": true},
		}, nil
	}

	dir, err := scratchDir(map[string]string{src: input["source_code"], test: input["test_code"]})
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	out, err := r.runner.Run(ctx, dir, "go", "test", "-count=1", "./...")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return models.Failure{Error: truncate(strings.TrimSpace(string(out))), Retryable: true}, nil
	}
	return models.Success{Output: truncate(strings.TrimSpace(string(out)))}, nil
}

var _ Tool = (*RunTests)(nil)
