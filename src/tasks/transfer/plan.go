package transfer

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jarvis-cd/jarvis/src/tasks"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type Kind int

const (
	File Kind = iota
	Dir
)

func (k Kind) String() string {
	if k == Dir {
		return "dir"
	}
	return "file"
}

type Entry struct {
	Src  string
	Dst  string
	Kind Kind
}

// Root is one source of a plan together with where it lands.
type Root struct {
	Src  string
	Dst  string
	Kind Kind
}

// Plan maps local sources to destination paths.  Directory entries precede
// every file entry.
type Plan struct {
	Entries []Entry
	Roots   []Root

	// SelfCopy is set when a source resolves to the destination itself
	// or to its parent.  Copying such a plan onto the local host would
	// overwrite the source.
	SelfCopy bool
}

// NewPlan expands sources into file level entries.  A single source is
// copied to dst verbatim while multiple sources are placed under dst by
// basename.  Directory sources are walked recursively.
func NewPlan(sources []string, dst string) (*Plan, error) {
	if len(sources) == 0 {
		return nil, errors.Wrap(tasks.ErrInvalidArgument, "no sources")
	}
	if dst == "" {
		return nil, errors.Wrap(tasks.ErrInvalidArgument, "no destination")
	}

	plan := &Plan{}
	var dirs, files []Entry

	for _, src := range sources {
		src = filepath.Clean(src)
		info, err := os.Stat(src)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		target := filepath.Clean(dst)
		if len(sources) > 1 {
			target = filepath.Join(dst, filepath.Base(src))
		}

		self, err := isSelfCopy(src, dst)
		if err != nil {
			return nil, err
		}
		plan.SelfCopy = plan.SelfCopy || self

		if !info.IsDir() {
			files = append(files, Entry{Src: src, Dst: target, Kind: File})
			plan.Roots = append(plan.Roots, Root{Src: src, Dst: target, Kind: File})
			continue
		}

		dirs = append(dirs, Entry{Src: src, Dst: target, Kind: Dir})
		plan.Roots = append(plan.Roots, Root{Src: src, Dst: target, Kind: Dir})

		err = filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			files = append(files, Entry{Src: path, Dst: filepath.Join(target, rel), Kind: File})
			return nil
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	plan.Entries = append(dirs, files...)
	return plan, nil
}

func (p *Plan) Dirs() []Entry {
	return lo.Filter(p.Entries, func(e Entry, _ int) bool {
		return e.Kind == Dir
	})
}

func (p *Plan) Files() []Entry {
	return lo.Filter(p.Entries, func(e Entry, _ int) bool {
		return e.Kind == File
	})
}

// Parents returns every directory that must exist on a host before the
// files of the plan are transferred.
func (p *Plan) Parents() []string {
	dirs := lo.Map(p.Dirs(), func(e Entry, _ int) string {
		return e.Dst
	})
	for _, e := range p.Files() {
		dirs = append(dirs, filepath.Dir(e.Dst))
	}
	return lo.Uniq(dirs)
}

func isSelfCopy(src string, dst string) (bool, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return false, errors.WithStack(err)
	}

	absDst, err := filepath.Abs(dst)
	if err != nil {
		return false, errors.WithStack(err)
	}

	return absSrc == absDst || filepath.Dir(absSrc) == absDst, nil
}
