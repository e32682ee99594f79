package entity

import "strings"

// Import is one import declaration of a compilation unit.
type Import struct {
	Name     string
	Static   bool
	Wildcard bool
}

type unit struct {
	pkg     string
	imports []Import
	parent  Resolver
	query   string
}

// Scope resolves names as seen from one point in a compilation unit.
// Nested scopes add type parameters, member and local classes, and
// variables; lookups walk outwards before consulting the unit's imports
// and the parent resolver.
type Scope struct {
	outer  *Scope
	unit   *unit
	types  map[string]Entity
	values map[string]bool
}

// NewUnitScope returns the outermost scope of a compilation unit in
// package pkg. query is the unit's qualified name, passed on to parent.
func NewUnitScope(parent Resolver, query, pkg string, imports []Import) *Scope {
	if parent == nil {
		parent = nullResolver{}
	}
	return &Scope{
		unit: &unit{pkg: pkg, imports: imports, parent: parent, query: query},
	}
}

// Nest returns an inner scope.
func (s *Scope) Nest() *Scope {
	return &Scope{outer: s, unit: s.unit}
}

func (s *Scope) Package() string {
	return s.unit.pkg
}

func (s *Scope) DeclareTypeParam(name string) {
	s.declare(name, &TypeParamEntity{Name: name})
}

// DeclareType makes a member or local class visible by its simple name.
func (s *Scope) DeclareType(t *TypeEntity) {
	s.declare(t.SimpleName(), t)
}

func (s *Scope) declare(name string, e Entity) {
	if s.types == nil {
		s.types = make(map[string]Entity)
	}
	s.types[name] = e
}

// DeclareValue records a variable, parameter or field name. Values only
// shadow names used as expression qualifiers.
func (s *Scope) DeclareValue(name string) {
	if s.values == nil {
		s.values = make(map[string]bool)
	}
	s.values[name] = true
}

func (s *Scope) lexicalType(name string) Entity {
	for c := s; c != nil; c = c.outer {
		if e, ok := c.types[name]; ok {
			return e
		}
	}
	return nil
}

func (s *Scope) HasValue(name string) bool {
	for c := s; c != nil; c = c.outer {
		if c.values[name] {
			return true
		}
	}
	return false
}

func (s *Scope) parentType(name string) *TypeEntity {
	t, _ := s.unit.parent.ResolvePackageOrClass(name, s.unit.query).(*TypeEntity)
	return t
}

// ResolveType resolves a simple type name. The order is: type parameters,
// then member and local classes, then single-type imports, then the
// unit's own package, then on-demand imports, then java.lang, and finally
// the parent resolver.
func (s *Scope) ResolveType(name string) Entity {
	if e := s.lexicalType(name); e != nil {
		return e
	}
	u := s.unit

	for _, imp := range u.imports {
		if imp.Wildcard || lastSegment(imp.Name) != name {
			continue
		}
		if t := s.parentType(imp.Name); t != nil {
			return t
		}
		if !imp.Static {
			// An unresolvable import still shadows the package.
			return &TypeEntity{Name: imp.Name}
		}
	}

	if t := s.parentType(Qualify(u.pkg, name)); t != nil {
		return t
	}

	for _, imp := range u.imports {
		if !imp.Wildcard {
			continue
		}
		if t := s.parentType(imp.Name + "." + name); t != nil {
			return t
		}
	}

	if t := s.parentType("java.lang." + name); t != nil {
		return t
	}
	if u.pkg != "" {
		if t := s.parentType(name); t != nil {
			return t
		}
	}
	return nil
}

// Resolve resolves a name as written at a reference site. For a dotted
// name the entity returned is the type the name depends on: the outer type
// when the first segment is a type, otherwise the shortest qualified
// prefix naming a known type. qualifier marks names used as the target of
// a field access or call, where a variable in scope takes precedence.
func (s *Scope) Resolve(name string, qualifier bool) Entity {
	segs := strings.Split(name, ".")
	if qualifier && s.HasValue(segs[0]) {
		return nil
	}
	if e := s.ResolveType(segs[0]); e != nil {
		return e
	}
	for i := 2; i <= len(segs); i++ {
		if t := s.parentType(strings.Join(segs[:i], ".")); t != nil {
			return t
		}
	}
	return nil
}

// ResolvePackageOrClass makes a Scope usable wherever a Resolver is.
func (s *Scope) ResolvePackageOrClass(name, querySource string) Entity {
	if !strings.Contains(name, ".") {
		if e := s.ResolveType(name); e != nil {
			return e
		}
		return s.unit.parent.ResolvePackageOrClass(name, querySource)
	}
	if e := s.Resolve(name, false); e != nil {
		return e
	}
	return s.unit.parent.ResolvePackageOrClass(name, querySource)
}
