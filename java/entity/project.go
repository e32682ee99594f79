package entity

import (
	"strings"
	"sync"
)

// ProjectResolver knows the types declared by a project's source files.
// It is safe for concurrent use: documents resolve against it while the
// project updates it.
type ProjectResolver struct {
	mu       sync.RWMutex
	types    map[string]*TypeEntity
	packages map[string]int
	parent   Resolver
}

// NewProjectResolver returns an empty resolver. Names it does not know are
// passed to parent, which may be nil.
func NewProjectResolver(parent Resolver) *ProjectResolver {
	return &ProjectResolver{
		types:    make(map[string]*TypeEntity),
		packages: make(map[string]int),
		parent:   parent,
	}
}

// Define adds or replaces a type.
func (r *ProjectResolver) Define(t *TypeEntity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name]; !ok {
		for _, p := range packagePrefixes(t.Package) {
			r.packages[p]++
		}
	}
	r.types[t.Name] = t
	log.Debugf("defined %s from %s", t.Name, t.Source)
}

// Forget removes a type.
func (r *ProjectResolver) Forget(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.types[name]
	if !ok {
		return
	}
	delete(r.types, name)
	for _, p := range packagePrefixes(t.Package) {
		if r.packages[p]--; r.packages[p] <= 0 {
			delete(r.packages, p)
		}
	}
}

func (r *ProjectResolver) Lookup(name string) (*TypeEntity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

func (r *ProjectResolver) ResolvePackageOrClass(name, querySource string) Entity {
	r.mu.RLock()
	t, ok := r.types[name]
	_, isPkg := r.packages[name]
	r.mu.RUnlock()
	if ok {
		return t
	}
	if r.parent != nil {
		if e := r.parent.ResolvePackageOrClass(name, querySource); e != nil {
			if _, pkg := e.(*PackageEntity); !pkg || !isPkg {
				return e
			}
		}
	}
	if isPkg {
		return &PackageEntity{Name: name}
	}
	return nil
}

// packagePrefixes returns "a", "a.b", "a.b.c" for "a.b.c".
func packagePrefixes(pkg string) []string {
	if pkg == "" {
		return nil
	}
	var out []string
	for i := 0; i < len(pkg); i++ {
		if pkg[i] == '.' {
			out = append(out, pkg[:i])
		}
	}
	return append(out, pkg)
}

// splitQualified splits "a.b.C" into "a.b" and "C".
func splitQualified(name string) (pkg, simple string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}
