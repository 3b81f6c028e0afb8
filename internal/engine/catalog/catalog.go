package catalog

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"refactorimports/internal/core/errors"
	"refactorimports/internal/engine/parser"
	"refactorimports/internal/shared/observability"
	"refactorimports/internal/shared/util"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
)

const (
	packageInit            = "__init__.py"
	defaultNestedCacheSize = 256
)

type Option func(*Catalog) error

// WithParser shares a parser between catalogs instead of building one per catalog.
func WithParser(p *parser.Parser) Option {
	return func(c *Catalog) error {
		c.parser = p
		return nil
	}
}

// WithSearchPaths adds directories consulted when resolving absolute imports.
func WithSearchPaths(paths ...string) Option {
	return func(c *Catalog) error {
		c.extraPaths = append(c.extraPaths, paths...)
		return nil
	}
}

// WithExcludes skips directories and files whose base name matches a glob.
func WithExcludes(dirs, files []string) Option {
	return func(c *Catalog) error {
		ex, err := util.NewExcluder(dirs, files)
		if err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "exclude")
		}
		c.exclude = ex
		return nil
	}
}

func WithNestedCacheSize(size int) Option {
	return func(c *Catalog) error {
		if size > 0 {
			c.cacheSize = size
		}
		return nil
	}
}

// Catalog builds ModuleRecords for a source tree. Results are computed once
// per instance; later calls return the same records and errors.
type Catalog struct {
	root   string
	isFile bool

	parser     *parser.Parser
	extractor  *parser.PythonExtractor
	exclude    *util.Excluder
	extraPaths []string
	search     searchPath
	cacheSize  int

	built    bool
	records  []*ModuleRecord
	buildErr error

	byPath     map[string]*ModuleRecord
	nested     *lru.Cache[string, *ModuleRecord]
	inProgress map[string]bool
	owned      []*ModuleRecord
}

func New(root string, opts ...Option) (*Catalog, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid root"), errors.CtxPath, root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.New(errors.CodeNotFound, "root does not exist"), errors.CtxPath, root)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "stat root"), errors.CtxPath, root)
	}

	c := &Catalog{
		root:       abs,
		isFile:     !info.IsDir(),
		extractor:  &parser.PythonExtractor{},
		cacheSize:  defaultNestedCacheSize,
		byPath:     make(map[string]*ModuleRecord),
		inProgress: make(map[string]bool),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.parser == nil {
		c.parser = parser.NewParser()
	}

	base := c.root
	if c.isFile {
		base = filepath.Dir(c.root)
	}
	c.search = newSearchPath(base, c.extraPaths)

	if c.nested, err = lru.New[string, *ModuleRecord](c.cacheSize); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create nested module cache")
	}
	return c, nil
}

func (c *Catalog) Root() string {
	return c.root
}

// SearchRoots lists the directories imports resolve against, in lookup order.
func (c *Catalog) SearchRoots() []string {
	return append([]string(nil), c.search.roots...)
}

// Modules returns the records reachable from the root. Files that fail to
// parse are left out and reported through the joined error.
func (c *Catalog) Modules(ctx context.Context) ([]*ModuleRecord, error) {
	if c.built {
		return c.records, c.buildErr
	}

	ctx, span := observability.Tracer.Start(ctx, "catalog.Modules")
	defer span.End()

	files, err := c.discover()
	if err != nil {
		return nil, err
	}

	// A canceled build leaves no records behind, so a later call starts over.
	var errs []error
	records := make([]*ModuleRecord, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := c.load(ctx, f.module, f.path)
		if err != nil {
			slog.Warn("skipping module", "path", f.path, "error", err)
			errs = append(errs, err)
			continue
		}
		records = append(records, record)
	}

	c.records = records
	for _, record := range records {
		c.byPath[record.Path] = record
	}

	for _, record := range c.records {
		c.resolveNested(ctx, record)
	}

	c.buildErr = stderrors.Join(errs...)
	c.built = true
	span.SetAttributes(
		attribute.Int("catalog.modules", len(c.records)),
		attribute.Int("catalog.errors", len(errs)),
	)
	slog.Debug("catalog built", "root", c.root, "modules", len(c.records), "errors", len(errs))
	return c.records, c.buildErr
}

// Exportables lists every record's exportable symbols, records in walk order.
func (c *Catalog) Exportables(ctx context.Context) ([]Exportable, error) {
	records, err := c.Modules(ctx)
	var out []Exportable
	for _, r := range records {
		out = append(out, r.Exportables()...)
	}
	return out, err
}

// Calls maps each module path to its distinct call targets in lexical order.
func (c *Catalog) Calls(ctx context.Context) (map[string][]string, error) {
	records, err := c.Modules(ctx)
	out := make(map[string][]string, len(records))
	for _, r := range records {
		out[r.Module] = util.UniqueSorted(append(out[r.Module], r.Calls...))
	}
	return out, err
}

// Close releases every syntax tree the catalog parsed.
func (c *Catalog) Close() {
	for _, r := range c.owned {
		r.Tree.Close()
	}
	c.owned = nil
	c.nested.Purge()
}

type sourceFile struct {
	module string
	path   string
}

func (c *Catalog) discover() ([]sourceFile, error) {
	if c.isFile {
		return []sourceFile{{module: "", path: c.root}}, nil
	}

	var files []sourceFile
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.root && c.exclude.SkipDir(path) {
			return filepath.SkipDir
		}
		if !isFile(filepath.Join(path, packageInit)) {
			return nil
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || c.exclude.SkipFile(name) {
				continue
			}
			full := filepath.Join(path, name)
			rel, err := filepath.Rel(c.root, full)
			if err != nil {
				return err
			}
			files = append(files, sourceFile{module: util.DottedPath(filepath.ToSlash(rel)), path: full})
		}
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk source tree"), errors.CtxPath, c.root)
	}
	return files, nil
}

func (c *Catalog) load(ctx context.Context, module, path string) (*ModuleRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeParse, "read source"), errors.CtxPath, path)
	}
	tree, err := c.parser.Parse(ctx, path, content)
	if err != nil {
		return nil, err
	}

	info := c.extractor.Extract(tree)
	record := &ModuleRecord{
		Module:  module,
		Path:    path,
		Tree:    tree,
		Names:   info.Names,
		Calls:   info.Calls,
		Imports: info.Imports,
		Nested:  make(map[string]*ModuleRecord),
	}
	c.owned = append(c.owned, record)
	return record, nil
}

// resolveNested fills record.Nested. Unresolvable imports, unparsable
// targets and cycles are left out without error.
func (c *Catalog) resolveNested(ctx context.Context, record *ModuleRecord) {
	for _, imp := range record.Imports {
		c.addNested(ctx, record, imp)
		if !imp.From {
			continue
		}
		for _, name := range imp.Names {
			sub := imp
			sub.Module = strings.TrimPrefix(imp.Module+"."+name, ".")
			c.addNested(ctx, record, sub)
		}
	}
}

func (c *Catalog) addNested(ctx context.Context, record *ModuleRecord, imp parser.Import) {
	key := importKey(imp)
	if _, done := record.Nested[key]; done {
		return
	}
	path, ok := c.search.Resolve(imp, record.Path)
	if !ok || path == record.Path {
		return
	}
	if nested := c.nestedRecord(ctx, key, path); nested != nil {
		record.Nested[key] = nested
	}
}

func (c *Catalog) nestedRecord(ctx context.Context, key, path string) *ModuleRecord {
	if r, ok := c.byPath[path]; ok {
		return r
	}
	if r, ok := c.nested.Get(path); ok {
		return r
	}
	if c.inProgress[path] {
		return nil
	}
	c.inProgress[path] = true
	defer delete(c.inProgress, path)

	module := strings.TrimLeft(key, ".")
	r, err := c.load(ctx, module, path)
	if err != nil {
		slog.Debug("nested import omitted", "import", key, "path", path, "error", err)
		return nil
	}
	c.resolveNested(ctx, r)
	c.nested.Add(path, r)
	return r
}
