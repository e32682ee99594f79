package entity

import "testing"

func newTestProject() *ProjectResolver {
	r := NewProjectResolver(nil)
	for _, t := range []*TypeEntity{
		{Name: "app.Widget", Package: "app", Source: "app/Widget.java"},
		{Name: "app.T", Package: "app", Source: "app/T.java"},
		{Name: "app.List", Package: "app", Source: "app/List.java"},
		{Name: "lib.List", Package: "lib", Source: "lib/List.java"},
		{Name: "lib.Helper", Package: "lib", Source: "lib/Helper.java"},
		{Name: "otherpkg.M", Package: "otherpkg", Source: "otherpkg/M.java"},
		{Name: "app.M", Package: "app", Source: "app/M.java"},
		{Name: "java.lang.String", Package: "java.lang"},
		{Name: "Top", Source: "Top.java"},
	} {
		r.Define(t)
	}
	return r
}

func TestResolveTypeOrder(t *testing.T) {
	project := newTestProject()

	tests := []struct {
		name    string
		imports []Import
		setup   func(s *Scope)
		lookup  string
		want    string
	}{
		{
			name:   "same package",
			lookup: "Widget",
			want:   "app.Widget",
		},
		{
			name:   "type parameter shadows package class",
			setup:  func(s *Scope) { s.DeclareTypeParam("T") },
			lookup: "T",
			want:   "T",
		},
		{
			name:   "member class shadows package class",
			setup:  func(s *Scope) { s.DeclareType(&TypeEntity{Name: "app.A.Widget"}) },
			lookup: "Widget",
			want:   "app.A.Widget",
		},
		{
			name:    "single-type import shadows package class",
			imports: []Import{{Name: "lib.List"}},
			lookup:  "List",
			want:    "lib.List",
		},
		{
			name:    "package class beats on-demand import",
			imports: []Import{{Name: "lib", Wildcard: true}},
			lookup:  "List",
			want:    "app.List",
		},
		{
			name:    "on-demand import",
			imports: []Import{{Name: "lib", Wildcard: true}},
			lookup:  "Helper",
			want:    "lib.Helper",
		},
		{
			name:   "java.lang",
			lookup: "String",
			want:   "java.lang.String",
		},
		{
			name:    "unresolvable import still shadows",
			imports: []Import{{Name: "gone.Widget"}},
			lookup:  "Widget",
			want:    "gone.Widget",
		},
		{
			name:   "default package type",
			lookup: "Top",
			want:   "Top",
		},
		{
			name:   "unknown",
			lookup: "Nope",
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewUnitScope(project, "app.A", "app", tt.imports).Nest()
			if tt.setup != nil {
				tt.setup(s)
			}
			got := ""
			if e := s.ResolveType(tt.lookup); e != nil {
				got = e.QualifiedName()
			}
			if got != tt.want {
				t.Errorf("ResolveType(%q) = %q, want %q", tt.lookup, got, tt.want)
			}
		})
	}
}

func TestResolveQualified(t *testing.T) {
	project := newTestProject()
	s := NewUnitScope(project, "app.A", "app", nil).Nest()
	s.DeclareValue("widget")

	tests := []struct {
		name      string
		ref       string
		qualifier bool
		want      string
	}{
		{"fully qualified", "otherpkg.M", false, "otherpkg.M"},
		{"qualifier of a static call", "otherpkg.M", true, "otherpkg.M"},
		{"nested type through outer", "Widget.Inner", false, "app.Widget"},
		{"variable shadows", "widget.parts", true, ""},
		{"variable does not shadow a type position", "Widget", false, "app.Widget"},
		{"unknown package", "nowhere.X", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ""
			if e := s.Resolve(tt.ref, tt.qualifier); e != nil {
				got = e.QualifiedName()
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestProjectResolverPackages(t *testing.T) {
	r := NewProjectResolver(nil)
	r.Define(&TypeEntity{Name: "a.b.C", Package: "a.b", Source: "C.java"})

	for _, name := range []string{"a", "a.b"} {
		if _, ok := r.ResolvePackageOrClass(name, "").(*PackageEntity); !ok {
			t.Errorf("%s should resolve to a package", name)
		}
	}
	if _, ok := r.ResolvePackageOrClass("a.b.C", "").(*TypeEntity); !ok {
		t.Error("a.b.C should resolve to a type")
	}

	r.Forget("a.b.C")
	for _, name := range []string{"a", "a.b", "a.b.C"} {
		if e := r.ResolvePackageOrClass(name, ""); e != nil {
			t.Errorf("%s should be gone, got %v", name, e)
		}
	}
}

func TestChainPrefersTypes(t *testing.T) {
	pkgOnly := NewProjectResolver(nil)
	pkgOnly.Define(&TypeEntity{Name: "x.y.Z", Package: "x.y", Source: "Z.java"})
	typed := NewProjectResolver(nil)
	typed.Define(&TypeEntity{Name: "x.y", Package: "x", Source: "y.java"})

	e := Chain{pkgOnly, typed}.ResolvePackageOrClass("x.y", "")
	if _, ok := e.(*TypeEntity); !ok {
		t.Errorf("Chain resolved x.y to %T, want *TypeEntity", e)
	}
}
