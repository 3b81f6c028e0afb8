package patch

import (
	"refactorimports/internal/core/errors"

	"github.com/sourcegraph/go-diff/diff"
)

// Summary counts the line changes in a patch.
type Summary struct {
	Added   int32
	Changed int32
	Deleted int32
}

// Summarize parses a single-file unified diff. An empty patch summarizes to zero.
func Summarize(p Patch) (Summary, error) {
	if p.Empty() {
		return Summary{}, nil
	}
	fd, err := diff.ParseFileDiff([]byte(p.Text))
	if err != nil {
		return Summary{}, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "parse patch"), errors.CtxPath, p.File)
	}
	stat := fd.Stat()
	return Summary{Added: stat.Added, Changed: stat.Changed, Deleted: stat.Deleted}, nil
}
