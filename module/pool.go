// Package module implements the module catalogue: loading external symbol
// schemas (functions, structures, arrays, dictionaries, references) from
// JSON or YAML documents so that identifiers in rule conditions can be
// resolved and type-checked against `import`ed modules.
package module

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/yaramod/yaramod-go/symbol"
)

// Features selects which schema documents a Pool loads, mirroring
// yaramod's Basic/AvastOnly/VirusTotalOnly/Deprecated bitmask.
type Features uint8

const (
	Basic          Features = 0x1
	VendorAOnly    Features = 0x2
	VendorBOnly    Features = 0x4
	Deprecated     Features = 0x8
	VendorA        = Basic | VendorAOnly
	VendorB        = Basic | VendorBOnly
	AllCurrent     = VendorA | VendorB
	Everything     = AllCurrent | Deprecated
)

// Has reports whether f includes every bit set in want.
func (f Features) Has(want Features) bool { return f&want == want }

const (
	envSearchPath          = "YARAMOD_MODULE_SPEC_PATH"
	envSearchPathExclusive = "YARAMOD_MODULE_SPEC_PATH_EXCLUSIVE"
)

// PoolConfig configures a Pool's schema discovery.
type PoolConfig struct {
	// Dir is the built-in module-schema directory. Ignored if the
	// exclusive environment override is set.
	Dir string
	// Features selects which documents load, by their declared feature
	// flags.
	Features Features
	// MinVersion, if set, rejects schema documents declaring a "version"
	// field below this value (SPEC_FULL.md §4.11).
	MinVersion *semver.Version
}

// Pool loads one Module per distinct module name, selecting which schema
// documents apply to each by its configured Features and search paths, and
// merging the environment overrides documented in spec.md §6.
type Pool struct {
	cfg PoolConfig

	mu      sync.Mutex
	modules map[string]*Module
}

// NewPool constructs a Pool from explicit configuration.
func NewPool(cfg PoolConfig) *Pool {
	return &Pool{cfg: cfg, modules: make(map[string]*Module)}
}

// searchPaths computes the effective list of directories/globs to scan,
// applying the two environment variable overrides. It is an error for both
// to be set simultaneously (spec.md §6).
func (p *Pool) searchPaths() ([]string, error) {
	exclusive := os.Getenv(envSearchPathExclusive)
	extra := os.Getenv(envSearchPath)
	if exclusive != "" && extra != "" {
		return nil, fmt.Errorf("module: both %s and %s are set", envSearchPath, envSearchPathExclusive)
	}

	if exclusive != "" {
		return strings.Split(exclusive, ":"), nil
	}

	paths := []string{}
	if p.cfg.Dir != "" {
		paths = append(paths, p.cfg.Dir)
	}
	if extra != "" {
		paths = append(paths, strings.Split(extra, ":")...)
	}
	return paths, nil
}

// discover resolves the configured search paths (each of which may itself
// be a doublestar glob, e.g. "modules/**/*.json") to a list of schema
// document file paths.
func (p *Pool) discover() ([]string, error) {
	paths, err := p.searchPaths()
	if err != nil {
		return nil, err
	}

	var files []string
	for _, root := range paths {
		if strings.ContainsAny(root, "*?[") {
			matches, err := doublestar.FilepathGlob(root)
			if err != nil {
				return nil, fmt.Errorf("module: bad glob %q: %w", root, err)
			}
			files = append(files, matches...)
			continue
		}

		matches, err := doublestar.FilepathGlob(filepath.Join(root, "**", "*.{json,yml,yaml}"))
		if err != nil {
			return nil, fmt.Errorf("module: scanning %q: %w", root, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

// LoadAll discovers every schema document on the search path and groups
// them by declared module name, applying the feature filter. Documents for
// distinct modules are parsed concurrently (golang.org/x/sync/errgroup),
// since parsing one module's document tree is independent of any other's.
func (p *Pool) LoadAll(ctx context.Context) error {
	files, err := p.discover()
	if err != nil {
		return err
	}

	type parsed struct {
		name string
		doc  SchemaNode
	}
	results := make([]parsed, len(files))
	loadErrs := make([]error, len(files))

	g, _ := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() (err error) {
			// Keep each document's error instead of stopping the group, so
			// one load attempt reports every error together.
			defer func() { loadErrs[i], err = err, nil }()
			data, err := os.ReadFile(f)
			if err != nil {
				return fmt.Errorf("module: reading %s: %w", f, err)
			}
			doc, err := decodeSchema(f, data)
			if err != nil {
				return err
			}
			include, err := p.checkVersion(doc)
			if err != nil {
				return fmt.Errorf("module: %s: %w", f, err)
			}
			if !include || !p.includeDoc(doc) {
				return nil
			}
			results[i] = parsed{name: moduleNameFor(f, doc), doc: doc}
			return nil
		})
	}
	_ = g.Wait()
	if err := errors.Join(loadErrs...); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range results {
		if r.name == "" {
			continue
		}
		m, ok := p.modules[r.name]
		if !ok {
			m = &Module{name: r.name}
			p.modules[r.name] = m
		}
		m.docs = append(m.docs, r.doc)
	}
	return nil
}

// checkVersion reports whether doc clears the Pool's configured MinVersion.
// A document with no "version" field always passes, for backward
// compatibility with schemas predating the field. A malformed version
// string is a hard error rather than a silent skip, since it almost always
// means the schema document itself is broken.
func (p *Pool) checkVersion(doc SchemaNode) (bool, error) {
	if doc.Version == "" {
		return true, nil
	}
	v, err := semver.NewVersion(doc.Version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", doc.Version, err)
	}
	if p.cfg.MinVersion == nil {
		return true, nil
	}
	return !v.LessThan(p.cfg.MinVersion), nil
}

func (p *Pool) includeDoc(doc SchemaNode) bool {
	flags := Basic
	if doc.Deprecated == "true" {
		flags = Deprecated
	}
	return p.cfg.Features.Has(flags) || (flags == Basic && p.cfg.Features != 0)
}

// moduleNameFor derives a module's name from its top-level schema document:
// the document's own "name" field if the struct node is the module root,
// else the file's base name without extension.
func moduleNameFor(path string, doc SchemaNode) string {
	if doc.Kind == "struct" && doc.Name != "" {
		return doc.Name
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Module returns the named module, loading its schema documents on first
// access. The caller must have called LoadAll (or Add) at least once for
// this module's documents to be registered; an unknown name returns
// ok=false.
func (p *Pool) Module(name string) (*Module, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.modules[name]
	return m, ok
}

// Add registers an in-memory schema document for a named module, bypassing
// file discovery. Used by tests and by embedders that ship their schema
// compiled-in rather than on disk.
func (p *Pool) Add(moduleName string, doc SchemaNode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.modules[moduleName]
	if !ok {
		m = &Module{name: moduleName}
		p.modules[moduleName] = m
	}
	m.docs = append(m.docs, doc)
}

// Resolve is a convenience combining Module and Module.Root.
func (p *Pool) Resolve(name string) (*symbol.Structure, error) {
	m, ok := p.Module(name)
	if !ok {
		return nil, fmt.Errorf("module: unknown module %q", name)
	}
	return m.Root()
}
