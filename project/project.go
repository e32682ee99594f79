// Package project keeps the dependency graph of a Java source tree. Every
// source file is a ClassTarget named after its primary type; targets are
// grouped into packages and linked by uses, extends and implements edges.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/jide/java/entity"
	"github.com/dhamidi/jide/java/parser"
	"github.com/dhamidi/jide/observability"
)

var log = commonlog.GetLogger("jide.project")

var ErrNoSuchTarget = errors.New("no such target")

// State is the compiled state of a target.
type State int

const (
	StateInvalid State = iota
	StateCompiling
	StateNormal
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateCompiling:
		return "compiling"
	case StateNormal:
		return "normal"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type EdgeKind int

const (
	Uses EdgeKind = iota
	Extends
	Implements
)

func (k EdgeKind) String() string {
	switch k {
	case Uses:
		return "uses"
	case Extends:
		return "extends"
	case Implements:
		return "implements"
	}
	return fmt.Sprintf("EdgeKind(%d)", int(k))
}

// Edge records that From depends on To. An edge that a reanalysis no
// longer finds is unflagged rather than dropped, and flagged again if a
// later reanalysis finds it.
type Edge struct {
	From *ClassTarget
	To   *ClassTarget
	Kind EdgeKind

	flagged bool
}

type edgeKey struct {
	name string
	kind EdgeKind
}

// ClassTarget is one source file of the project.
type ClassTarget struct {
	Name    string // qualified name of the primary type
	Path    string
	Package *Package

	project *Project
	state   State
	job     string // compile job that owns a compiling target
	info    *parser.ClassInfo
	types   []string // top-level types declared in the file
	tree    *parser.ParsedNode
	lines   *parser.LineMap
	out     map[edgeKey]*Edge
	in      map[edgeKey]*Edge
}

// SimpleName returns the name of the primary type without its package.
func (t *ClassTarget) SimpleName() string {
	if i := strings.LastIndexByte(t.Name, '.'); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

func (t *ClassTarget) State() State {
	t.project.mu.RLock()
	defer t.project.mu.RUnlock()
	return t.state
}

// ClassInfo returns the facts from the last analysis. The result is never
// modified after it is published.
func (t *ClassTarget) ClassInfo() *parser.ClassInfo {
	t.project.mu.RLock()
	defer t.project.mu.RUnlock()
	return t.info
}

// ContextPath returns the path of the target's .ctxt side file.
func (t *ClassTarget) ContextPath() string {
	return strings.TrimSuffix(t.Path, filepath.Ext(t.Path)) + ".ctxt"
}

// Package is a directory of targets sharing a Java package.
type Package struct {
	Name string
	Dir  string

	project *Project
	targets map[string]*ClassTarget
}

// Targets returns the package's targets sorted by name.
func (p *Package) Targets() []*ClassTarget {
	p.project.mu.RLock()
	defer p.project.mu.RUnlock()
	return sortedTargets(p.targets)
}

type Options struct {
	// OutDir receives compiled classes. It defaults to the root directory.
	OutDir string
	// Classpath lists directories and jars resolving library types.
	Classpath []string
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to the root, and against base names.
	Exclude []string
	// Gitignore makes discovery skip what the root .gitignore ignores.
	Gitignore bool
	// Parallelism bounds concurrent parsing during discovery. Zero means
	// one worker per CPU.
	Parallelism int
}

// Project is the graph of targets below one root directory.
type Project struct {
	RootDir   string
	OutDir    string
	Classpath []string

	mu       sync.RWMutex
	opts     Options
	exclude  []glob.Glob
	packages map[string]*Package
	targets  map[string]*ClassTarget
	byPath   map[string]*ClassTarget
	owners   map[string]string // type name -> declaring file
	resolver *entity.ProjectResolver
}

func New(root string, opts Options) (*Project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	loader, err := entity.NewClassLoaderResolver(opts.Classpath)
	if err != nil {
		return nil, fmt.Errorf("load classpath: %w", err)
	}
	excludes, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = root
	}
	return &Project{
		RootDir:   root,
		OutDir:    outDir,
		Classpath: opts.Classpath,
		opts:      opts,
		exclude:   excludes,
		packages:  make(map[string]*Package),
		targets:   make(map[string]*ClassTarget),
		byPath:    make(map[string]*ClassTarget),
		owners:    make(map[string]string),
		resolver:  entity.NewProjectResolver(loader),
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func (p *Project) parallelism() int {
	if p.opts.Parallelism > 0 {
		return p.opts.Parallelism
	}
	return runtime.NumCPU()
}

// Resolver returns the resolver that knows the project's types.
func (p *Project) Resolver() entity.Resolver {
	return p.resolver
}

// Target returns the target named by a qualified type name.
func (p *Project) Target(name string) (*ClassTarget, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.targetLocked(name)
}

func (p *Project) targetLocked(name string) (*ClassTarget, error) {
	t, ok := p.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTarget, name)
	}
	return t, nil
}

func (p *Project) TargetByPath(path string) (*ClassTarget, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.byPath[p.abs(path)]
	return t, ok
}

func (p *Project) Targets() []*ClassTarget {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedTargets(p.targets)
}

func (p *Project) Packages() []*Package {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pkgs := make([]*Package, 0, len(p.packages))
	for _, pkg := range p.packages {
		pkgs = append(pkgs, pkg)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs
}

func sortedTargets(m map[string]*ClassTarget) []*ClassTarget {
	targets := make([]*ClassTarget, 0, len(m))
	for _, t := range m {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets
}

func (p *Project) targetNamesLocked() []string {
	names := make([]string, 0, len(p.targets))
	for name := range p.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Project) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.RootDir, path)
}

// analysis is a parsed source file waiting to be linked into the graph.
type analysis struct {
	path  string
	tree  *parser.ParsedNode
	lines *parser.LineMap
	pkg   string
	types []string
}

func analyse(path string, src []byte) *analysis {
	start := time.Now()
	a := &analysis{
		path:  path,
		tree:  parser.ParseFile(src),
		lines: parser.NewLineMap(src),
	}
	observability.ParseDuration.Observe(time.Since(start).Seconds())

	for _, c := range a.tree.Children() {
		switch c.Kind {
		case parser.KindPackage:
			a.pkg = c.Name
		case parser.KindTypeDef:
			if c.Name != "" {
				a.types = append(a.types, entity.Qualify(a.pkg, c.Name))
			}
		}
	}
	return a
}

func (p *Project) extract(tree *parser.ParsedNode, lines *parser.LineMap, path string) *parser.ClassInfo {
	return parser.Extract(tree, lines, parser.Options{File: path, Resolver: p.resolver})
}

// Add reads and analyses a source file. A new target starts invalid.
// Targets that may now resolve names to the new types are analysed
// again. Add returns nil when the file declares no type.
func (p *Project) Add(path string) (*ClassTarget, error) {
	path = p.abs(path)
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.ApplySource(path, src)
}

// ApplySource analyses src as the content of the file at path, adding or
// updating its target.
func (p *Project) ApplySource(path string, src []byte) (*ClassTarget, error) {
	a := analyse(p.abs(path), src)

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.updateGaugesLocked()

	p.defineLocked(a)
	return p.linkLocked(a, p.extract(a.tree, a.lines, a.path), true)
}

// Reanalyse parses a target's source again and refreshes its edges. Its
// state is left alone.
func (p *Project) Reanalyse(name string) error {
	t, err := p.Target(name)
	if err != nil {
		return err
	}
	_, err = p.Add(t.Path)
	return err
}

// defineLocked registers the file's types with the resolver and forgets
// the ones it no longer declares.
func (p *Project) defineLocked(a *analysis) {
	if old := p.byPath[a.path]; old != nil {
		for _, name := range old.types {
			if !contains(a.types, name) && p.owners[name] == a.path {
				p.resolver.Forget(name)
				delete(p.owners, name)
			}
		}
	}
	for _, name := range a.types {
		if owner, ok := p.owners[name]; ok && owner != a.path {
			log.Warningf("%s: type %s is already declared in %s", a.path, name, owner)
			continue
		}
		p.owners[name] = a.path
		p.resolver.Define(&entity.TypeEntity{Name: name, Package: a.pkg, Source: a.path})
	}
}

// linkLocked creates or updates the target of an analysed file. With
// relink set, its edges are flagged and a new target makes related targets
// resolve again; without it the caller flags edges once all files are
// linked.
func (p *Project) linkLocked(a *analysis, info *parser.ClassInfo, relink bool) (*ClassTarget, error) {
	old := p.byPath[a.path]
	if len(a.types) == 0 {
		if old != nil {
			p.removeLocked(old)
		}
		log.Debugf("%s declares no type", a.path)
		return nil, nil
	}

	name := info.QualifiedName()
	if other, ok := p.targets[name]; ok && other.Path != a.path {
		return nil, fmt.Errorf("%s: %s is already defined in %s", a.path, name, other.Path)
	}
	if old != nil && old.Name != name {
		p.removeLocked(old)
		p.defineLocked(a)
		old = nil
	}

	t := old
	if t == nil {
		t = &ClassTarget{
			Name:    name,
			Path:    a.path,
			project: p,
			state:   StateInvalid,
			out:     make(map[edgeKey]*Edge),
			in:      make(map[edgeKey]*Edge),
		}
		pkg := p.packageLocked(info.Package, filepath.Dir(a.path))
		t.Package = pkg
		pkg.targets[name] = t
		p.targets[name] = t
		p.byPath[a.path] = t
	}
	t.info = info
	t.types = a.types
	t.tree = a.tree
	t.lines = a.lines

	if p.owners[name] == a.path {
		p.resolver.Define(&entity.TypeEntity{
			Name:       name,
			Package:    info.Package,
			Source:     a.path,
			Superclass: info.Superclass,
			Interfaces: info.InterfaceNames(),
			Interface:  info.IsInterface,
		})
	}
	if !relink {
		return t, nil
	}
	p.flagEdgesLocked(t)

	if old == nil {
		for _, r := range p.targets {
			if r != t && p.relatedLocked(r, info.Package) {
				r.info = p.extract(r.tree, r.lines, r.Path)
				p.flagEdgesLocked(r)
			}
		}
	}
	return t, nil
}

// relatedLocked reports whether t could resolve a simple name to a type of
// package pkg.
func (p *Project) relatedLocked(t *ClassTarget, pkg string) bool {
	if t.info.Package == pkg {
		return true
	}
	for _, imp := range t.info.Imports {
		imp = strings.TrimPrefix(imp, "static ")
		if imp == pkg+".*" || strings.HasPrefix(imp, pkg+".") {
			return true
		}
	}
	return false
}

func (p *Project) packageLocked(name, dir string) *Package {
	pkg, ok := p.packages[name]
	if !ok {
		pkg = &Package{Name: name, Dir: dir, project: p, targets: make(map[string]*ClassTarget)}
		p.packages[name] = pkg
	}
	return pkg
}

// flagEdgesLocked unflags all outgoing edges of t and flags the ones its
// current ClassInfo implies. Only edges to project targets are kept.
func (p *Project) flagEdgesLocked(t *ClassTarget) {
	for _, e := range t.out {
		e.flagged = false
	}
	for _, name := range t.info.Used {
		p.flagLocked(t, name, Uses)
	}
	p.flagLocked(t, t.info.Superclass, Extends)
	kind := Implements
	if t.info.IsInterface {
		kind = Extends
	}
	for _, iface := range t.info.Interfaces {
		p.flagLocked(t, iface.Name, kind)
	}
}

func (p *Project) flagLocked(from *ClassTarget, typeName string, kind EdgeKind) {
	to := p.ownerTargetLocked(typeName)
	if to == nil || to == from {
		return
	}
	key := edgeKey{to.Name, kind}
	e, ok := from.out[key]
	if !ok {
		e = &Edge{From: from, To: to, Kind: kind}
		from.out[key] = e
		to.in[edgeKey{from.Name, kind}] = e
	}
	e.flagged = true
}

func (p *Project) ownerTargetLocked(typeName string) *ClassTarget {
	if typeName == "" {
		return nil
	}
	path, ok := p.owners[typeName]
	if !ok {
		return nil
	}
	return p.byPath[path]
}

// Remove deletes a target with all its edges. Its former dependents are
// invalidated.
func (p *Project) Remove(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.updateGaugesLocked()

	t, err := p.targetLocked(name)
	if err != nil {
		return err
	}
	p.removeLocked(t)
	return nil
}

// RemovePath removes the target of a source file, if there is one.
func (p *Project) RemovePath(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.updateGaugesLocked()

	t, ok := p.byPath[p.abs(path)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchTarget, path)
	}
	p.removeLocked(t)
	return nil
}

func (p *Project) removeLocked(t *ClassTarget) {
	var dependents []string
	for key, e := range t.in {
		delete(e.From.out, edgeKey{t.Name, key.kind})
		if e.flagged {
			dependents = append(dependents, e.From.Name)
		}
	}
	for key, e := range t.out {
		delete(e.To.in, edgeKey{t.Name, key.kind})
	}

	for _, name := range t.types {
		if p.owners[name] == t.Path {
			p.resolver.Forget(name)
			delete(p.owners, name)
		}
	}
	delete(t.Package.targets, t.Name)
	if len(t.Package.targets) == 0 {
		delete(p.packages, t.Package.Name)
	}
	delete(p.targets, t.Name)
	delete(p.byPath, t.Path)

	for _, name := range dependents {
		p.invalidateLocked(name)
	}
	log.Debugf("removed %s", t.Name)
}

// Modified marks a target invalid along with everything that depends on
// it, directly or transitively. It returns the invalidated names.
func (p *Project) Modified(name string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.updateGaugesLocked()

	if _, err := p.targetLocked(name); err != nil {
		return nil, err
	}
	return p.invalidateLocked(name), nil
}

func (p *Project) invalidateLocked(name string) []string {
	seen := map[string]bool{name: true}
	queue := []string{name}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		t, ok := p.targets[current]
		if !ok {
			continue
		}
		t.state = StateInvalid
		for _, e := range t.in {
			if e.flagged && !seen[e.From.Name] {
				seen[e.From.Name] = true
				queue = append(queue, e.From.Name)
			}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (p *Project) SetState(name string, state State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.updateGaugesLocked()

	t, err := p.targetLocked(name)
	if err != nil {
		return err
	}
	t.state = state
	return nil
}

// BeginCompile moves the named targets to the compiling state and makes
// job their owner.
func (p *Project) BeginCompile(job string, names []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.updateGaugesLocked()

	for _, name := range names {
		if t, ok := p.targets[name]; ok {
			t.state = StateCompiling
			t.job = job
		}
	}
}

// FinishCompile ends job's compilation of the named targets. Targets that
// were invalidated while compiling stay invalid, and targets a later job
// has taken over are left to that job.
func (p *Project) FinishCompile(job string, names []string, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.updateGaugesLocked()

	for _, name := range names {
		t, ok := p.targets[name]
		if !ok || t.state != StateCompiling || t.job != job {
			continue
		}
		t.job = ""
		if success {
			t.state = StateNormal
		} else {
			t.state = StateInvalid
		}
	}
}

// Invalid returns the names of all invalid targets.
func (p *Project) Invalid() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var names []string
	for name, t := range p.targets {
		if t.state == StateInvalid {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Dependencies returns the flagged outgoing edges of a target.
func (p *Project) Dependencies(name string) ([]*Edge, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, err := p.targetLocked(name)
	if err != nil {
		return nil, err
	}
	return flagged(t.out), nil
}

// Dependents returns the flagged incoming edges of a target.
func (p *Project) Dependents(name string) ([]*Edge, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, err := p.targetLocked(name)
	if err != nil {
		return nil, err
	}
	return flagged(t.in), nil
}

func flagged(edges map[edgeKey]*Edge) []*Edge {
	var result []*Edge
	for _, e := range edges {
		if e.flagged {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.From.Name != b.From.Name {
			return a.From.Name < b.From.Name
		}
		if a.To.Name != b.To.Name {
			return a.To.Name < b.To.Name
		}
		return a.Kind < b.Kind
	})
	return result
}

// DependsOn returns the names of the targets name has a flagged edge to,
// whatever the edge kind.
func (p *Project) DependsOn(name string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dependsOnLocked(name)
}

func (p *Project) dependsOnLocked(name string) []string {
	t, ok := p.targets[name]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, e := range t.out {
		if e.flagged && !seen[e.To.Name] {
			seen[e.To.Name] = true
			names = append(names, e.To.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (p *Project) updateGaugesLocked() {
	counts := map[State]int{}
	edges := map[EdgeKind]int{}
	for _, t := range p.targets {
		counts[t.state]++
		for _, e := range t.out {
			if e.flagged {
				edges[e.Kind]++
			}
		}
	}
	for _, s := range []State{StateInvalid, StateCompiling, StateNormal} {
		observability.Targets.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
	for _, k := range []EdgeKind{Uses, Extends, Implements} {
		observability.GraphEdges.WithLabelValues(k.String()).Set(float64(edges[k]))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
