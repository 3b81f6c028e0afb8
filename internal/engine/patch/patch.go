package patch

import (
	"fmt"
	"regexp"
	"strings"

	"refactorimports/internal/shared/util"

	"github.com/pmezard/go-difflib/difflib"
)

const noEOLMarker = `\ No newline at end of file`

var bulkImport = regexp.MustCompile(`^\s*from\s+(\S+)\s+import\s+\*`)

// ExecutionDiff is one traced step: the names that appeared or were rebound
// in the local and global namespaces since the previous step in File.
type ExecutionDiff struct {
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Source       string   `json:"source"`
	AddedLocals  []string `json:"added_locals"`
	AddedGlobals []string `json:"added_globals"`
}

// Patch is a unified diff against one file. An empty Text means nothing to change.
type Patch struct {
	File string
	Text string
}

func (p Patch) Empty() bool {
	return p.Text == ""
}

// Synthesize rewrites every bulk import in original whose effect the trace
// can prove. The names a statement binds are read from the diff that
// immediately follows it; a statement with no following diff, or one that
// added nothing, is left alone.
func Synthesize(file string, original []byte, diffs []ExecutionDiff) Patch {
	lines := splitLines(string(original))
	replacements := make(map[int][]string)

	for i, d := range diffs {
		if d.File != file {
			continue
		}
		m := bulkImport.FindStringSubmatch(d.Source)
		if m == nil || i+1 >= len(diffs) {
			continue
		}
		names := boundNames(diffs[i+1])
		if len(names) == 0 {
			continue
		}
		idx := d.Line - 1
		if idx < 0 || idx >= len(lines) {
			continue
		}
		indent := util.LeadingWhitespace(lines[idx])
		out := make([]string, 0, len(names))
		for _, name := range names {
			out = append(out, fmt.Sprintf("%sfrom %s import %s\n", indent, m[1], name))
		}
		if !strings.HasSuffix(lines[idx], "\n") {
			last := len(out) - 1
			out[last] = strings.TrimSuffix(out[last], "\n")
		}
		replacements[idx] = out
	}

	if len(replacements) == 0 {
		return Patch{File: file}
	}

	rewritten := make([]string, 0, len(lines))
	for i, line := range lines {
		if repl, ok := replacements[i]; ok {
			rewritten = append(rewritten, repl...)
			continue
		}
		rewritten = append(rewritten, line)
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        markNoEOL(lines),
		B:        markNoEOL(rewritten),
		FromFile: file,
		ToFile:   file,
		Context:  3,
	})
	if err != nil {
		return Patch{File: file}
	}
	return Patch{File: file, Text: text}
}

func boundNames(d ExecutionDiff) []string {
	names := make([]string, 0, len(d.AddedLocals)+len(d.AddedGlobals))
	names = append(names, d.AddedLocals...)
	names = append(names, d.AddedGlobals...)
	return util.UniqueSorted(names)
}

// splitLines keeps line terminators, so only the final line can lack one.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// markNoEOL appends the unified diff "no newline" marker to an unterminated
// final line. The marker then follows that line in whichever hunk section
// prints it.
func markNoEOL(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	last := lines[len(lines)-1]
	if strings.HasSuffix(last, "\n") {
		return lines
	}
	out := append([]string(nil), lines...)
	out[len(out)-1] = last + "\n" + noEOLMarker + "\n"
	return out
}
