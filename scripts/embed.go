// Package scripts embeds the Risor queries shipped with thicket. They run
// through internal/runtime like any user script and are selectable by name
// from `thicket script`.
package scripts

import (
	"embed"
	"io/fs"
	"path"
	"strings"
)

// FS holds queries/*.risor.
//
//go:embed queries/*.risor
var FS embed.FS

// Dir is the directory inside FS that holds the queries.
const Dir = "queries"

// Names returns the embedded query names without directory or extension,
// sorted.
func Names() []string {
	matches, _ := fs.Glob(FS, Dir+"/*.risor")
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(path.Base(m), ".risor"))
	}
	return names
}

// Path returns the FS path of a named query and whether it exists.
func Path(name string) (string, bool) {
	p := Dir + "/" + name + ".risor"
	if _, err := fs.Stat(FS, p); err != nil {
		return "", false
	}
	return p, true
}
