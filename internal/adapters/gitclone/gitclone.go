// Package gitclone shallow-clones remote repositories into scoped temp
// directories using the git binary. Context cancellation kills the child
// process
package gitclone

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	perr "repolens/internal/platform/errors"
)

// Cloner runs git clone commands
type Cloner struct {
	// GitBin overrides the git executable, mainly for tests
	GitBin string
}

// New returns a Cloner using the git binary on PATH
func New() *Cloner { return &Cloner{GitBin: "git"} }

// TempDir creates a scoped working directory for one clone. The caller owns
// removal on every exit path
func TempDir() (string, error) {
	dir, err := os.MkdirTemp("", "repolens-clone-*")
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "gitclone: create temp dir")
	}
	return dir, nil
}

// Clone performs a shallow clone of url into dir. Branch refs are fetched so
// strategy inference still sees the branch list
func (c *Cloner) Clone(ctx context.Context, url, dir string) error {
	bin := c.GitBin
	if bin == "" {
		bin = "git"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"clone", "--depth", "1", "--no-single-branch", "--quiet", url, dir)
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "gitclone: clone %s failed: %s", url, trimOutput(stderr.String()))
	}
	return nil
}

func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
