package tools

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Summarize renders a one-line description of a finished tool call for the
// chat panel.
func Summarize(name string, input map[string]any, res Result) string {
	p, _ := stringArg(input, "path")
	base := path.Base(p)
	if p == "" {
		base = "."
	}
	failed := ""
	if !res.OK {
		failed = " (failed)"
	}

	switch name {
	case "read_file":
		if !res.OK {
			return fmt.Sprintf("READ %s%s", base, failed)
		}
		return fmt.Sprintf("READ %s (%d lines)", base, lineCount(res.Message))
	case "list_files":
		if !res.OK {
			return fmt.Sprintf("LIST %s%s", base, failed)
		}
		var entries []string
		_ = json.Unmarshal([]byte(res.Message), &entries)
		return fmt.Sprintf("LIST %s (%d entries)", base, len(entries))
	case "edit_file":
		return fmt.Sprintf("EDIT %s%s", base, failed)
	case "create_file":
		if !res.OK {
			return fmt.Sprintf("CREATE %s%s", base, failed)
		}
		content, _ := stringArg(input, "content")
		return fmt.Sprintf("CREATE %s (%d lines)", base, lineCount(content))
	default:
		return fmt.Sprintf("%s called", strings.ToUpper(name))
	}
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
