package outputs

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/samber/lo"
)

// Print writes one status line per host followed by its indented output.
func (o Outputs) Print(w io.Writer) error {
	ok := color.New(color.FgGreen).SprintFunc()
	changed := color.New(color.FgYellow).SprintFunc()
	failed := color.New(color.FgRed, color.Bold).SprintFunc()

	for _, host := range o.Hosts() {
		out := o[host]

		status := ok("ok")
		switch {
		case !out.Success():
			status = failed(fmt.Sprintf("failed (%d)", out.Code()))
		case out.IsChanged():
			status = changed("changed")
		}

		lines := []string{fmt.Sprintf("  %s: %s", host, status)}
		for _, line := range out.Stdout {
			lines = append(lines, "    "+line)
		}
		for _, line := range out.Stderr {
			lines = append(lines, "    "+failed(line))
		}
		files := lo.Keys(out.Diff)
		sort.Strings(files)
		for _, file := range files {
			lines = append(lines, "    "+changed(file))
			for _, line := range out.Diff[file] {
				lines = append(lines, "      "+line)
			}
		}
		if out.Error != "" {
			lines = append(lines, "    "+failed(out.Error))
		}

		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}

	return nil
}
