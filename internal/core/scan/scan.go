// Package scan walks a repository tree and produces a lightweight file
// inventory. It never reads file contents; content extraction happens later
// against the inventory
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/denormal/go-gitignore"

	"repolens/internal/core/ruleset"
)

// Entry is one scanned file. Immutable once produced
type Entry struct {
	Path     string `json:"path"` // slash-separated, relative to the root
	Ext      string `json:"ext"`  // lowercase, no leading dot
	Size     int64  `json:"size"`
	Category string `json:"category"`
}

// Inventory is the ordered scan result. Entry order is walk order and is
// the first-seen tie-break authority for everything downstream
type Inventory struct {
	Entries    []Entry        `json:"entries"`
	Truncated  bool           `json:"truncated"`
	TotalBytes int64          `json:"total_bytes"`
	Counts     map[string]int `json:"counts"`
	Checksum   string         `json:"checksum"`
}

// Options bound the walk
type Options struct {
	MaxEntries int // <=0 uses DefaultMaxEntries
}

// DefaultMaxEntries caps the inventory on pathological trees
const DefaultMaxEntries = 5000

// errStopWalk aborts WalkDir without reporting a failure
var errStopWalk = fmt.Errorf("scan: entry cap reached")

// ErrLimitNoEntries reports a walk that hit the entry cap before recording a
// single entry. A truncated inventory is only usable as a partial result
// when it holds at least one entry
var ErrLimitNoEntries = errors.New("scan: entry cap exhausted with no entries")

// Walk scans root and returns the inventory. Hitting the entry cap yields a
// partial inventory with Truncated set, not an error. Symlinked directories
// are never followed
func Walk(ctx context.Context, root string, pack *ruleset.Pack, opts Options) (*Inventory, error) {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan: root %q is not a directory", root)
	}

	var ignorer gitignore.GitIgnore
	if _, err := os.Stat(filepath.Join(root, ".gitignore")); err == nil {
		// a broken .gitignore degrades to the built-in skip set only
		ignorer, _ = gitignore.NewFromFile(filepath.Join(root, ".gitignore"))
	}

	inv := &Inventory{Counts: make(map[string]int, 8)}
	sum := sha256.New()

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtree is skipped, not fatal
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if pack.SkipDir(d.Name()) {
				return fs.SkipDir
			}
			// WalkDir does not follow symlinks, but a symlinked dir still
			// appears as a non-dir entry; nothing extra needed here
			if ignorer != nil {
				if m := ignorer.Relative(rel, true); m != nil && m.Ignore() {
					return fs.SkipDir
				}
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if ignorer != nil {
			if m := ignorer.Relative(rel, false); m != nil && m.Ignore() {
				return nil
			}
		}

		fi, statErr := d.Info()
		if statErr != nil {
			return nil
		}

		if len(inv.Entries) >= maxEntries {
			inv.Truncated = true
			return errStopWalk
		}

		e := Entry{
			Path:     rel,
			Ext:      strings.ToLower(strings.TrimPrefix(filepath.Ext(rel), ".")),
			Size:     fi.Size(),
			Category: pack.Categorize(rel),
		}
		inv.Entries = append(inv.Entries, e)
		inv.TotalBytes += e.Size
		inv.Counts[e.Category]++
		fmt.Fprintf(sum, "%s\x00%d\n", e.Path, e.Size)
		return nil
	})

	if walkErr != nil && walkErr != errStopWalk {
		return nil, walkErr
	}
	if inv.Truncated && len(inv.Entries) == 0 {
		return nil, ErrLimitNoEntries
	}
	inv.Checksum = hex.EncodeToString(sum.Sum(nil))
	return inv, nil
}

// HasCategory reports whether at least one entry carries the category
func (inv *Inventory) HasCategory(cat string) bool { return inv.Counts[cat] > 0 }
