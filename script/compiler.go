package script

import (
	"regexp"

	"github.com/milk9111/scripthost/wire"
)

// Include directives name other script assets whose loaded source a script
// relies on. The directive is editor-side syntax only; the VM never sees it.
var includeRe = regexp.MustCompile(`(?m)^[ \t]*#include[ \t]+"([^"]+)"[ \t]*\r?$`)

// GatherIncludes scans source text for #include directives and returns the
// referenced paths in order of appearance.
func GatherIncludes(src []byte) []string {
	var deps []string
	for _, m := range includeRe.FindAllSubmatch(src, -1) {
		deps = append(deps, string(m[1]))
	}
	return deps
}

// CompileBlob pre-processes script source into the self-describing resource
// blob: u32 dependency count, null-terminated dependency paths, then the
// source with directive lines blanked (newlines kept so diagnostics keep
// their line numbers).
func CompileBlob(src []byte) []byte {
	deps := GatherIncludes(src)
	var w wire.Writer
	w.WriteU32(uint32(len(deps)))
	for _, dep := range deps {
		w.WriteString(dep)
	}
	w.WriteRaw(includeRe.ReplaceAll(src, nil))
	return w.Bytes()
}
