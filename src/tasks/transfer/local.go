package transfer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jarvis-cd/jarvis/src/tasks/outputs"

	"github.com/illikainen/go-utils/src/errorx"
	"github.com/illikainen/go-utils/src/iofs"
	"github.com/illikainen/go-utils/src/stringx"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sergi/go-diff/diffmatchpatch"
	log "github.com/sirupsen/logrus"
)

func init() {
	lo.Must0(Register(Local, newLocalStrategy))
}

type localStrategy struct {
	name    string
	dirMode os.FileMode
}

func newLocalStrategy(opts *Options) (Strategy, error) {
	return &localStrategy{name: opts.Name, dirMode: opts.DirMode}, nil
}

// Copy writes the plan to the local filesystem once per host name.  Every
// name refers to this machine, so hosts are handled one at a time.
func (s *localStrategy) Copy(ctx context.Context, plan *Plan, hosts []string) outputs.Outputs {
	outs := outputs.Outputs{}
	for _, host := range hosts {
		diff, err := s.copy(ctx, plan)
		if err != nil {
			log.Warnf("%s: %s: %s", host, s.name, err)
			outs.Add(outputs.Failed(Type, s.name, host, err))
			continue
		}
		outs.Add(outputs.Done(Type, s.name, host, diff))
	}
	return outs
}

func (s *localStrategy) copy(ctx context.Context, plan *Plan) (map[string][]string, error) {
	var dirChanges, fileChanges, permChanges []string

	for _, entry := range plan.Dirs() {
		changes, err := mkdirAll(entry.Dst, s.dirMode)
		if err != nil {
			return nil, err
		}
		dirChanges = append(dirChanges, changes...)
	}

	for _, entry := range plan.Files() {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		changes, err := mkdirAll(filepath.Dir(entry.Dst), s.dirMode)
		if err != nil {
			return nil, err
		}
		dirChanges = append(dirChanges, changes...)

		stat, err := os.Stat(entry.Src)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		changes, err = writeFile(entry.Src, entry.Dst, stat.Mode().Perm())
		if err != nil {
			return nil, err
		}
		fileChanges = append(fileChanges, changes...)

		changes, err = chmod(entry.Dst, stat.Mode().Perm())
		if err != nil {
			return nil, err
		}
		permChanges = append(permChanges, changes...)
	}

	return map[string][]string{
		"mkdir":       dirChanges,
		"file":        fileChanges,
		"permissions": permChanges,
	}, nil
}

func mkdirAll(name string, mode os.FileMode) ([]string, error) {
	var changes []string
	path := ""

	for i, part := range strings.Split(filepath.Clean(name), string(filepath.Separator)) {
		if i == 0 && part == "" {
			part = string(filepath.Separator)
		}
		path = filepath.Join(path, part)

		exists, err := iofs.Exists(path)
		if err != nil {
			return nil, err
		}

		if !exists {
			err := os.Mkdir(path, mode)
			if err != nil && !errors.Is(err, os.ErrExist) {
				return nil, errors.WithStack(err)
			}
			changes = append(changes, fmt.Sprintf("%s: %s (%#o)", path, mode, mode))
		}
	}

	return changes, nil
}

func chmod(name string, mode os.FileMode) ([]string, error) {
	stat, err := os.Stat(name)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	oldMode := stat.Mode().Perm()
	if oldMode == mode {
		return nil, nil
	}

	err = os.Chmod(name, mode)
	if err != nil {
		// EPERM means the path is owned by someone else.
		if errors.Is(err, syscall.EPERM) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	return []string{
		fmt.Sprintf("%s: %s (%#o) -> %s (%#o)", name, oldMode, int(oldMode), mode, int(mode)),
	}, nil
}

// writeFile replaces dst with the content of src unless both are already
// identical.  Small text files are diffed, anything else is summarised by
// size.
func writeFile(src string, dst string, mode os.FileMode) ([]string, error) {
	srcStat, err := os.Stat(src)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	dstStat, err := os.Stat(dst)
	if errors.Is(err, os.ErrNotExist) {
		if err := streamFile(src, dst, mode); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("%s: wrote %d bytes", dst, srcStat.Size())}, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if srcStat.Size() == dstStat.Size() {
		same, err := sameContent(src, dst)
		if err != nil {
			return nil, err
		}
		if same {
			return nil, nil
		}
	}

	summary := []string{fmt.Sprintf("replaced (%d -> %d bytes)", dstStat.Size(), srcStat.Size())}
	if srcStat.Size() <= maxDiffSize && dstStat.Size() <= maxDiffSize {
		old, err := iofs.ReadFile(dst)
		if err != nil {
			return nil, err
		}
		cur, err := iofs.ReadFile(src)
		if err != nil {
			return nil, err
		}
		summary = formatDiff(old, cur)
	}

	if err := streamFile(src, dst, mode); err != nil {
		return nil, err
	}
	return append([]string{dst + ":"}, summary...), nil
}

// maxDiffSize is the largest file that is diffed line by line.
const maxDiffSize = 64 * 1024

// streamFile copies src into a temporary file next to dst and renames it
// over dst.
func streamFile(src string, dst string, mode os.FileMode) (err error) {
	in, err := os.Open(src) // #nosec G304
	if err != nil {
		return errors.WithStack(err)
	}
	defer errorx.Defer(in.Close, &err)

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return errors.WithStack(err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return errors.WithStack(err)
	}
	if err = tmp.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func sameContent(a string, b string) (bool, error) {
	ha, err := hashFile(a)
	if err != nil {
		return false, err
	}
	hb, err := hashFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ha, hb), nil
}

func hashFile(name string) (sum []byte, err error) {
	f, err := os.Open(name) // #nosec G304
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer errorx.Defer(f.Close, &err)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, errors.WithStack(err)
	}
	return h.Sum(nil), nil
}

// formatDiff renders a line oriented diff of two texts.  Binary content is
// summarised by size.
func formatDiff(old []byte, cur []byte) []string {
	if bytes.IndexByte(old, 0) >= 0 || bytes.IndexByte(cur, 0) >= 0 {
		return []string{fmt.Sprintf("binary content changed (%d -> %d bytes)", len(old), len(cur))}
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(old), string(cur))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []string
	for _, diff := range diffs {
		prefix := " "
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffEqual:
			continue
		}

		for _, line := range stringx.SplitLines(diff.Text) {
			out = append(out, fmt.Sprintf("%s %s", prefix, line))
		}
	}
	return out
}
