package git

import (
	"fmt"
	"os/exec"
	"strings"
)

const (
	StatusAdded    = "added"
	StatusModified = "modified"
	StatusDeleted  = "deleted"
	StatusRenamed  = "renamed"
)

type ChangedFile struct {
	Path   string
	Status string
}

// Deleted reports whether the file no longer exists at Path.
func (c ChangedFile) Deleted() bool {
	return c.Status == StatusDeleted
}

// GetChangedFiles runs git diff against baseRef and lists the touched files.
// Paths come back NUL-separated so git leaves non-ASCII names unquoted.
func GetChangedFiles(baseRef string) ([]ChangedFile, error) {
	cmd := exec.Command("git", "diff", "--name-status", "-z", baseRef)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}

	return parseNameStatus(output)
}

// parseNameStatus reads "X\x00path\x00" records; renames and copies carry two
// paths.
func parseNameStatus(output []byte) ([]ChangedFile, error) {
	fields := strings.Split(strings.TrimRight(string(output), "\x00"), "\x00")
	var changes []ChangedFile

	for i := 0; i < len(fields); {
		code := fields[i]
		if code == "" {
			i++
			continue
		}
		paths := 1
		if code[0] == 'R' || code[0] == 'C' {
			paths = 2
		}
		if i+paths >= len(fields) {
			return nil, fmt.Errorf("malformed diff entry %q: want %d path(s)", code, paths)
		}
		p := fields[i+1 : i+1+paths]
		i += 1 + paths

		switch code[0] {
		case 'A', 'C':
			changes = append(changes, ChangedFile{Path: p[len(p)-1], Status: StatusAdded})
		case 'M', 'T':
			changes = append(changes, ChangedFile{Path: p[0], Status: StatusModified})
		case 'D':
			changes = append(changes, ChangedFile{Path: p[0], Status: StatusDeleted})
		case 'R':
			changes = append(changes,
				ChangedFile{Path: p[0], Status: StatusDeleted},
				ChangedFile{Path: p[1], Status: StatusRenamed},
			)
		default:
			// Unmerged or unknown entries carry nothing we can rescan.
		}
	}

	return changes, nil
}
