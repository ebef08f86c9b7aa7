package rules

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/berthci/berth/internal/fsio"
	"github.com/berthci/berth/internal/log"
)

// MachineHeader marks side-file content generated by the pipeline. A file
// that lacks it is user-authored and is appended to, never overwritten.
const MachineHeader = "# Generated by berth. Changes below this block are managed automatically."

// WriteRedirects persists rules to the `_redirects` side file at path.
// User-authored content is never overwritten: in a pre-existing file only
// the content from MachineHeader onward is replaced, everything before the
// marker is kept. A file without the marker keeps all its content and the
// generated block is appended after it.
func WriteRedirects(fs afero.Fs, path string, redirects []RedirectRule) error {
	lines := make([]string, 0, len(redirects))
	for _, r := range redirects {
		lines = append(lines, formatRedirect(r))
	}
	body := MachineHeader + "\n\n" + strings.Join(lines, "\n")

	existing, found, err := fsio.ReadFileIfExists(fs, path)
	if err != nil {
		return err
	}
	if found {
		user := string(existing)
		if idx := strings.Index(user, MachineHeader); idx >= 0 {
			user = user[:idx]
		}
		user = strings.TrimRight(user, "\n")
		if user != "" {
			body = user + "\n\n" + body
		}
	}

	return fsio.WriteFile(fs, path, []byte(body))
}

func formatRedirect(r RedirectRule) string {
	status := r.Status
	if status == 0 {
		status = DefaultRedirectStatus
	}
	line := r.From + "  " + r.To + "  " + strconv.Itoa(status)
	if r.Force {
		line += "!"
	}

	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := r.Params[k]
		// The line format cannot carry spaces inside a value.
		if strings.ContainsAny(v, " \t") {
			log.Warn("dropping redirect parameter with whitespace in value",
				"from", r.From, "param", k, "value", v)
			continue
		}
		line += "  " + k + "=" + v
	}
	return line
}
