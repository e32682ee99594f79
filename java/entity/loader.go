package entity

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhamidi/jide/classfile"
)

// ClassLoaderResolver answers for compiled classes in directories and
// jar files. Classes are indexed by name up front and their headers are
// read on first use; nothing is loaded into a running VM.
type ClassLoaderResolver struct {
	mu       sync.Mutex
	entries  map[string]classLocation
	packages map[string]bool
	cache    map[string]*TypeEntity
}

type classLocation struct {
	jar  string // empty for a class directory
	path string // file path, or entry name inside jar
}

// NewClassLoaderResolver indexes the given classpath entries. Missing
// entries are skipped; unreadable jars are an error.
func NewClassLoaderResolver(classpath []string) (*ClassLoaderResolver, error) {
	r := &ClassLoaderResolver{
		entries:  make(map[string]classLocation),
		packages: make(map[string]bool),
		cache:    make(map[string]*TypeEntity),
	}
	for _, entry := range classpath {
		info, err := os.Stat(entry)
		if err != nil {
			log.Debugf("classpath entry %s: %s", entry, err)
			continue
		}
		if info.IsDir() {
			err = r.indexDir(entry)
		} else {
			err = r.indexJar(entry)
		}
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *ClassLoaderResolver) indexDir(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		r.add(filepath.ToSlash(rel), classLocation{path: path})
		return nil
	})
}

func (r *ClassLoaderResolver) indexJar(jar string) error {
	zr, err := zip.OpenReader(jar)
	if err != nil {
		return fmt.Errorf("failed to open jar %s: %w", jar, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".class") {
			r.add(f.Name, classLocation{jar: jar, path: f.Name})
		}
	}
	return nil
}

// add indexes a class by its slash-separated relative path. Anonymous and
// local classes, whose binary names contain a segment starting with a
// digit, are not addressable from source and are skipped.
func (r *ClassLoaderResolver) add(rel string, loc classLocation) {
	binary := strings.TrimSuffix(rel, ".class")
	if strings.HasPrefix(binary, "META-INF/") || strings.HasSuffix(binary, "module-info") || strings.HasSuffix(binary, "package-info") {
		return
	}
	for _, seg := range strings.Split(binary, "$")[1:] {
		if seg == "" || seg[0] >= '0' && seg[0] <= '9' {
			return
		}
	}
	name := classfile.SourceName(binary)
	if _, ok := r.entries[name]; ok {
		// first entry on the classpath wins
		return
	}
	r.entries[name] = loc
	if i := strings.LastIndexByte(binary, '/'); i >= 0 {
		for _, p := range packagePrefixes(strings.ReplaceAll(binary[:i], "/", ".")) {
			r.packages[p] = true
		}
	}
}

func (r *ClassLoaderResolver) ResolvePackageOrClass(name, querySource string) Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.cache[name]; ok {
		return t
	}
	if loc, ok := r.entries[name]; ok {
		t, err := r.load(name, loc)
		if err != nil {
			log.Warningf("reading class %s: %s", name, err)
			t = &TypeEntity{Name: name}
			t.Package, _ = splitQualified(name)
		}
		r.cache[name] = t
		return t
	}
	if r.packages[name] {
		return &PackageEntity{Name: name}
	}
	return nil
}

func (r *ClassLoaderResolver) load(name string, loc classLocation) (*TypeEntity, error) {
	var cf *classfile.ClassFile
	if loc.jar == "" {
		var err error
		if cf, err = classfile.ParseFile(loc.path); err != nil {
			return nil, err
		}
	} else {
		zr, err := zip.OpenReader(loc.jar)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		f, err := zr.Open(loc.path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if cf, err = classfile.Parse(f); err != nil {
			return nil, err
		}
	}

	t := &TypeEntity{Name: name, Interface: cf.IsInterface()}
	binary := cf.ClassName()
	if i := strings.LastIndexByte(binary, '/'); i >= 0 {
		t.Package = strings.ReplaceAll(binary[:i], "/", ".")
	}
	if super := cf.SuperClassName(); super != "" {
		t.Superclass = classfile.SourceName(super)
	}
	for _, iface := range cf.InterfaceNames() {
		t.Interfaces = append(t.Interfaces, classfile.SourceName(iface))
	}
	return t, nil
}
