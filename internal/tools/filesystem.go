package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/kai/pkg/models"
)

// FileSystemName is the registered name of the file system tool.
const FileSystemName = "file_system"

const (
	maxReadBytes   = 1 << 20
	maxListEntries = 200
)

// ErrOutsideSandbox is returned for paths that escape the sandbox root.
var ErrOutsideSandbox = errors.New("path escapes sandbox")

// FileSystem reads and writes files below a sandbox root.
type FileSystem struct {
	root string
}

// NewFileSystem creates a file system tool rooted at root.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root: root}
}

func (f *FileSystem) Name() string { return FileSystemName }

func (f *FileSystem) Description() string {
	return "Read, write, list or delete files in the project workspace. Paths are relative to the workspace root."
}

func (f *FileSystem) Parameters() []Parameter {
	return []Parameter{
		{Name: "action", Description: "Operation to perform", Required: true, Enum: []string{"read", "write", "list", "delete"}},
		{Name: "path", Description: "Path relative to the workspace root", Required: true},
		{Name: "content", Description: "File content for write"},
	}
}

func (f *FileSystem) Execute(ctx context.Context, input map[string]string) (models.ToolResult, error) {
	if name := missing(f.Parameters(), input); name != "" {
		return models.Failure{Error: fmt.Sprintf("missing parameter: %s", name)}, nil
	}
	path, err := f.resolvePath(input["path"])
	if err != nil {
		return models.Failure{Error: err.Error()}, nil
	}

	switch input["action"] {
	case "read":
		return f.read(path)
	case "write":
		return f.write(path, input["path"], input["content"])
	case "list":
		return f.list(path)
	case "delete":
		if within(path, f.root) {
			return models.Failure{Error: "refusing to delete the workspace root"}, nil
		}
		if err := os.Remove(path); err != nil {
			return models.Failure{Error: fmt.Sprintf("failed to delete: %v", err)}, nil
		}
		return models.Success{Output: "deleted " + input["path"]}, nil
	default:
		return models.Failure{Error: fmt.Sprintf("unknown action: %s", input["action"])}, nil
	}
}

func (f *FileSystem) read(path string) (models.ToolResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Failure{Error: fmt.Sprintf("failed to read file: %v", err)}, nil
	}
	if info.Size() > maxReadBytes {
		return models.Failure{Error: fmt.Sprintf("file too large: %d bytes (limit %d)", info.Size(), maxReadBytes)}, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return models.Failure{Error: fmt.Sprintf("failed to read file: %v", err)}, nil
	}
	return models.Success{Output: string(content)}, nil
}

func (f *FileSystem) write(path, display, content string) (models.ToolResult, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return models.Failure{Error: fmt.Sprintf("failed to create directory: %v", err)}, nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return models.Failure{Error: fmt.Sprintf("failed to write file: %v", err)}, nil
	}
	return models.Success{Output: fmt.Sprintf("wrote %d bytes to %s", len(content), display)}, nil
}

func (f *FileSystem) list(path string) (models.ToolResult, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return models.Failure{Error: fmt.Sprintf("failed to read directory: %v", err)}, nil
	}

	var b strings.Builder
	for i, entry := range entries {
		if i == maxListEntries {
			fmt.Fprintf(&b, "... (%d more entries)\n", len(entries)-maxListEntries)
			break
		}
		if entry.IsDir() {
			fmt.Fprintf(&b, "d %s/\n", entry.Name())
			continue
		}
		if info, err := entry.Info(); err == nil {
			fmt.Fprintf(&b, "- %s (%d bytes)\n", entry.Name(), info.Size())
		} else {
			fmt.Fprintf(&b, "? %s\n", entry.Name())
		}
	}
	return models.Success{Output: b.String()}, nil
}

// resolvePath maps a workspace-relative path to an absolute path below
// root. Symlinks are followed before the containment check, so a link
// inside the sandbox cannot lead outside it.
func (f *FileSystem) resolvePath(p string) (string, error) {
	cleaned := filepath.Clean("/" + filepath.ToSlash(p))
	full := filepath.Join(f.root, cleaned)
	if !within(realPath(f.root), realPath(full)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideSandbox, p)
	}
	return full, nil
}

// realPath resolves symlinks in the longest existing prefix of path and
// appends the rest unchanged.
func realPath(path string) string {
	path = filepath.Clean(path)
	var rest []string
	for {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...)
		}
		parent := filepath.Dir(path)
		if parent == path {
			return filepath.Join(append([]string{path}, rest...)...)
		}
		rest = append([]string{filepath.Base(path)}, rest...)
		path = parent
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var _ Tool = (*FileSystem)(nil)
