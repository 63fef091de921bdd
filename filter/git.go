package filter

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/process"
)

// GitChanges returns a ChangeDetector that lists files differing from a ref
// with `git diff --name-only`, run in the repository at root. The working
// tree is included, so uncommitted edits count as changes.
func GitChanges(root string) ChangeDetector {
	return ChangeDetectorFunc(func(ctx context.Context, ref string) ([]string, error) {
		res, err := process.Run(ctx, process.Command{
			Binary: "git",
			Args:   []string{"diff", "--name-only", "--relative", ref, "--"},
			Dir:    root,
		})
		if err != nil {
			appErr := errors.ExternalServiceError("git", err)
			if res != nil && len(res.Stderr) > 0 {
				appErr.WithDetail("stderr", strings.TrimSpace(string(res.Stderr)))
			}
			return nil, appErr
		}
		var files []string
		sc := bufio.NewScanner(bytes.NewReader(res.Stdout))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			files = append(files, filepath.Join(root, filepath.FromSlash(line)))
		}
		return files, sc.Err()
	})
}
