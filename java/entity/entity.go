// Package entity resolves names found in Java source to packages and
// types. Resolvers chain: a Scope answers for one compilation unit and
// defers to a ProjectResolver, which defers to a ClassLoaderResolver.
package entity

import (
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jide.entity")

// Entity is the result of resolving a name.
type Entity interface {
	QualifiedName() string
}

// Resolver resolves a simple or qualified name. querySource is the
// qualified name of the compilation unit asking. A nil result means the
// name is unknown to this resolver and its parents.
type Resolver interface {
	ResolvePackageOrClass(name, querySource string) Entity
}

type PackageEntity struct {
	Name string
}

func (p *PackageEntity) QualifiedName() string { return p.Name }

// TypeEntity is a class, interface, enum, record or annotation type.
type TypeEntity struct {
	Name    string
	Package string
	// Source is the path of the source file declaring the type. It is
	// empty for types only known from compiled classes.
	Source     string
	Superclass string
	Interfaces []string
	Interface  bool
}

func (t *TypeEntity) QualifiedName() string { return t.Name }

// IsSource reports whether the type is backed by a source file.
func (t *TypeEntity) IsSource() bool { return t.Source != "" }

// SimpleName returns the last segment of the type's name.
func (t *TypeEntity) SimpleName() string {
	return lastSegment(t.Name)
}

// TypeParamEntity is a type variable in scope.
type TypeParamEntity struct {
	Name string
}

func (t *TypeParamEntity) QualifiedName() string { return t.Name }

// Qualify joins a package name and a simple name.
func Qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Chain tries each resolver in turn.
type Chain []Resolver

func (c Chain) ResolvePackageOrClass(name, querySource string) Entity {
	var pkg Entity
	for _, r := range c {
		if r == nil {
			continue
		}
		switch e := r.ResolvePackageOrClass(name, querySource).(type) {
		case nil:
		case *PackageEntity:
			// a type of the same name in a later resolver wins
			if pkg == nil {
				pkg = e
			}
		default:
			return e
		}
	}
	return pkg
}

type nullResolver struct{}

func (nullResolver) ResolvePackageOrClass(string, string) Entity { return nil }
