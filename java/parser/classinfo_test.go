package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dhamidi/jide/java/entity"
)

func testResolver() *entity.ProjectResolver {
	r := entity.NewProjectResolver(nil)
	for _, t := range []*entity.TypeEntity{
		{Name: "p.Base", Package: "p", Source: "p/Base.java"},
		{Name: "p.Helper", Package: "p", Source: "p/Helper.java"},
		{Name: "p.Iface", Package: "p", Source: "p/Iface.java"},
		{Name: "p.T", Package: "p", Source: "p/T.java"},
		{Name: "p.I", Package: "p", Source: "p/I.java"},
		{Name: "p.M", Package: "p", Source: "p/M.java"},
		{Name: "otherpkg.M", Package: "otherpkg", Source: "otherpkg/M.java"},
		{Name: "java.util.List", Package: "java.util"},
	} {
		r.Define(t)
	}
	return r
}

const usesSource = `package p;

import otherpkg.M;
import java.util.List;

public class A extends Base implements Iface {
    M field;
    List<Helper> helpers;
    void m() { M.run(); String s = ""; }
}
`

func TestClassInfoUsed(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "imports, same package and supertypes",
			src:  usesSource,
			want: []string{"otherpkg.M", "p.Base", "p.Helper", "p.Iface"},
		},
		{
			name: "type parameter shadows package class",
			src:  "package p;\nclass A<T> { T someVar; }\n",
			want: []string{},
		},
		{
			name: "method type parameter shadows package class",
			src:  "package p;\nclass A { <T> T id(T t) { return t; } }\n",
			want: []string{},
		},
		{
			name: "member class shadows package class",
			src:  "package p;\nclass A { class I { } I x; }\n",
			want: []string{},
		},
		{
			name: "local class shadows package class",
			src:  "package p;\nclass A { void m() { class I { } new I(); } }\n",
			want: []string{},
		},
		{
			name: "variable shadows qualifier",
			src:  "package p;\nclass A { void m() { int M = 0; M.foo(); } }\n",
			want: []string{},
		},
		{
			name: "field shadows qualifier",
			src:  "package p;\nclass A { Object M; void m() { M.hashCode(); } }\n",
			want: []string{},
		},
		{
			name: "qualified name in type and qualifier position",
			src:  "package p;\nclass A { otherpkg.M f; void m() { otherpkg.M.run(); } }\n",
			want: []string{"otherpkg.M"},
		},
		{
			name: "qualifier resolves in the same package",
			src:  "package p;\nclass A { void m() { Helper.run(); } }\n",
			want: []string{"p.Helper"},
		},
		{
			name: "class literal and cast",
			src:  "package p;\nclass A { Object m(Object o) { return (Helper) o == null ? Base.class : null; } }\n",
			want: []string{"p.Base", "p.Helper"},
		},
		{
			name: "declared types are not used",
			src:  "package p;\nclass A { B b; }\nclass B { A a; }\n",
			want: []string{},
		},
		{
			name: "classpath types are not used",
			src:  "package p;\nimport java.util.List;\nclass A { List<String> l; }\n",
			want: []string{},
		},
		{
			name: "types used by secondary classes count",
			src:  "package p;\npublic class A { }\nclass B extends Base { }\n",
			want: []string{"p.Base"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Parse([]byte(tt.src), Options{File: "p/A.java", Resolver: testResolver()})
			if info.HadParseError {
				t.Fatal("unexpected parse error")
			}
			if diff := cmp.Diff(tt.want, info.Used); diff != "" {
				t.Errorf("Used (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassInfoIdempotent(t *testing.T) {
	opts := Options{File: "p/A.java", Resolver: testResolver()}
	first := Parse([]byte(usesSource), opts)
	second := Parse([]byte(usesSource), opts)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("ClassInfo differs between runs (-first +second):\n%s", diff)
	}
}

func TestClassInfoHeader(t *testing.T) {
	info := Parse([]byte(usesSource), Options{File: "p/A.java", Resolver: testResolver()})

	if info.Package != "p" || info.Name != "A" || info.QualifiedName() != "p.A" {
		t.Errorf("name = %q in %q", info.Name, info.Package)
	}
	if diff := cmp.Diff([]string{"otherpkg.M", "java.util.List"}, info.Imports); diff != "" {
		t.Errorf("imports (-want +got):\n%s", diff)
	}
	if info.Superclass != "p.Base" {
		t.Errorf("superclass = %q", info.Superclass)
	}
	if diff := cmp.Diff([]string{"p.Iface"}, info.InterfaceNames()); diff != "" {
		t.Errorf("interfaces (-want +got):\n%s", diff)
	}
}

func TestClassInfoImports(t *testing.T) {
	src := "import a.B;\nimport a.c.*;\nimport static a.D.E;\nimport static a.D.*;\nclass X { }\n"
	info := Parse([]byte(src), Options{})
	want := []string{"a.B", "a.c.*", "static a.D.E", "static a.D.*"}
	if diff := cmp.Diff(want, info.Imports); diff != "" {
		t.Errorf("imports (-want +got):\n%s", diff)
	}
	if info.Package != "" || info.PackageSelection != nil {
		t.Errorf("default package: %q %v", info.Package, info.PackageSelection)
	}
}

func TestClassInfoSelections(t *testing.T) {
	src := "package p;\n\npublic class A extends B implements I {\n}\n"
	info := Parse([]byte(src), Options{File: "A.java"})

	at := func(s string) int { return strings.Index(src, s) }
	point := func(off, col int) Selection {
		return Selection{File: "A.java", Start: off, End: off, Line: 3, Column: col, EndLine: 3, EndColumn: col}
	}

	wantPackage := &Selection{File: "A.java", Start: 0, End: 10, Line: 1, Column: 1, EndLine: 1, EndColumn: 11}
	if diff := cmp.Diff(wantPackage, info.PackageSelection); diff != "" {
		t.Errorf("package selection (-want +got):\n%s", diff)
	}

	name := at("A extends")
	wantName := Selection{File: "A.java", Start: name, End: name + 1, Line: 3, Column: 14, EndLine: 3, EndColumn: 15}
	if diff := cmp.Diff(wantName, info.NameSelection); diff != "" {
		t.Errorf("name selection (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(point(name+1, 15), info.ExtendsInsert); diff != "" {
		t.Errorf("extends insert (-want +got):\n%s", diff)
	}

	sup := at("B implements")
	wantSuper := &Selection{File: "A.java", Start: sup, End: sup + 1, Line: 3, Column: 24, EndLine: 3, EndColumn: 25}
	if diff := cmp.Diff(wantSuper, info.SuperclassSelection); diff != "" {
		t.Errorf("superclass selection (-want +got):\n%s", diff)
	}

	iface := at("I {")
	wantIfaces := []Interface{{
		Name:      "I",
		Selection: Selection{File: "A.java", Start: iface, End: iface + 1, Line: 3, Column: 37, EndLine: 3, EndColumn: 38},
	}}
	if diff := cmp.Diff(wantIfaces, info.Interfaces); diff != "" {
		t.Errorf("interfaces (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(point(iface+1, 38), info.ImplementsInsert); diff != "" {
		t.Errorf("implements insert (-want +got):\n%s", diff)
	}
}

func TestClassInfoInsertPointsWithoutClauses(t *testing.T) {
	src := "class A<T> {}"
	info := Parse([]byte(src), Options{})
	end := strings.Index(src, " {")
	if info.ExtendsInsert.Start != end || info.ImplementsInsert.Start != end {
		t.Errorf("insert points = %d, %d; want %d", info.ExtendsInsert.Start, info.ImplementsInsert.Start, end)
	}
	if info.SuperclassSelection != nil || info.Superclass != "" {
		t.Errorf("unexpected superclass %q", info.Superclass)
	}
}

const commentSource = `package p;

public class C {
    /** Entry point. */
    public static void main(String[] args) { }
    void legacy(int a[], String s) { }
    static { }
    static { }
    { }
    C(int x) { }
    int[] arr()[] { return null; }
    /**
     * Sums.
     * @param xs values
     */
    <T> int sum(java.util.List<? extends T> xs) { return 0; }
}
`

func TestClassInfoComments(t *testing.T) {
	info := Parse([]byte(commentSource), Options{File: "C.java"})
	want := map[string]Comment{
		"void main(String[])":                  {Text: "Entry point.", Params: "args"},
		"void legacy(int[], String)":           {Params: "a s"},
		"void <clinit>()":                      {},
		"void <clinit>2()":                     {},
		"void <init>()":                        {},
		"C(int)":                               {Params: "x"},
		"int[][] arr()":                        {},
		"int sum(java.util.List<? extends T>)": {Text: "Sums.\n@param xs values", Params: "xs"},
	}
	if diff := cmp.Diff(want, info.Comments); diff != "" {
		t.Errorf("comments (-want +got):\n%s", diff)
	}
}

func TestClassInfoKinds(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		check func(t *testing.T, info *ClassInfo)
	}{
		{
			name: "interface extends",
			src:  "interface I extends J, K { }",
			check: func(t *testing.T, info *ClassInfo) {
				if !info.IsInterface || info.Superclass != "" {
					t.Errorf("interface = %v, superclass = %q", info.IsInterface, info.Superclass)
				}
				if diff := cmp.Diff([]string{"J", "K"}, info.InterfaceNames()); diff != "" {
					t.Errorf("interfaces (-want +got):\n%s", diff)
				}
			},
		},
		{
			name: "annotation type",
			src:  "@interface Ann { int value() default 1; }",
			check: func(t *testing.T, info *ClassInfo) {
				if !info.IsInterface {
					t.Error("annotation type should count as an interface")
				}
			},
		},
		{
			name: "enum",
			src:  "enum E { A, B; void m() { } }",
			check: func(t *testing.T, info *ClassInfo) {
				if !info.IsEnum {
					t.Error("IsEnum not set")
				}
			},
		},
		{
			name: "record with compact constructor",
			src:  "public record R(int a) { R { } }",
			check: func(t *testing.T, info *ClassInfo) {
				if !info.IsRecord {
					t.Error("IsRecord not set")
				}
				if _, ok := info.Comments["R()"]; !ok {
					t.Errorf("compact constructor missing from %v", info.Comments)
				}
			},
		},
		{
			name: "abstract class",
			src:  "public abstract class S { abstract void run(); }",
			check: func(t *testing.T, info *ClassInfo) {
				if !info.IsAbstract || info.IsUnitTest {
					t.Errorf("abstract = %v, unit test = %v", info.IsAbstract, info.IsUnitTest)
				}
			},
		},
		{
			name: "junit 3 test case",
			src:  "class FooTest extends junit.framework.TestCase { }",
			check: func(t *testing.T, info *ClassInfo) {
				if !info.IsUnitTest {
					t.Error("IsUnitTest not set")
				}
			},
		},
		{
			name: "junit import",
			src:  "import org.junit.jupiter.api.Test;\nclass FooTest { @Test void t() { } }",
			check: func(t *testing.T, info *ClassInfo) {
				if !info.IsUnitTest {
					t.Error("IsUnitTest not set")
				}
			},
		},
		{
			name: "main method",
			src:  "public class App { public static void main(String... args) { } }",
			check: func(t *testing.T, info *ClassInfo) {
				if !info.HasMain {
					t.Error("HasMain not set")
				}
			},
		},
		{
			name: "instance main is not an entry point",
			src:  "public class App { public void main(String[] args) { } }",
			check: func(t *testing.T, info *ClassInfo) {
				if info.HasMain {
					t.Error("HasMain set for an instance method")
				}
			},
		},
		{
			name: "type parameters",
			src:  "class Box<K extends Comparable<K>, V> { }",
			check: func(t *testing.T, info *ClassInfo) {
				if diff := cmp.Diff([]string{"K", "V"}, info.TypeParams); diff != "" {
					t.Errorf("type params (-want +got):\n%s", diff)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Parse([]byte(tt.src), Options{})
			if info.HadParseError {
				t.Fatal("unexpected parse error")
			}
			tt.check(t, info)
		})
	}
}

func TestClassInfoPrimaryType(t *testing.T) {
	src := "class Helper { }\npublic class Main { }\n"
	tests := []struct {
		file string
		want string
	}{
		{"src/Helper.java", "Helper"},
		{"src/Other.java", "Main"},
		{"", "Main"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			info := Parse([]byte(src), Options{File: tt.file})
			if info.Name != tt.want {
				t.Errorf("primary type = %q, want %q", info.Name, tt.want)
			}
		})
	}
}

func TestClassInfoParseError(t *testing.T) {
	src := "package p;\nimport otherpkg.M;\nclass A { M f; void broken( { }\n}\n"
	info := Parse([]byte(src), Options{File: "p/A.java", Resolver: testResolver()})
	if !info.HadParseError {
		t.Error("HadParseError not set")
	}
	if info.Name != "A" {
		t.Errorf("name = %q", info.Name)
	}
	if diff := cmp.Diff([]string{"otherpkg.M"}, info.Used); diff != "" {
		t.Errorf("Used (-want +got):\n%s", diff)
	}
}

func TestClassInfoHeaderSurvivesTypos(t *testing.T) {
	const class = "public class A extends Base {\n    /** Runs. */\n    void run() { }\n}\n"
	tests := []struct {
		name   string
		header string
	}{
		{"import without semicolon", "package p;\nimport java.util.List\n"},
		{"stray character", "package p;\n#\n"},
		{"stray words", "package p;\nfoo bar\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Parse([]byte(tt.header+class), Options{File: "p/A.java", Resolver: testResolver()})
			if !info.HadParseError {
				t.Error("HadParseError not set")
			}
			if info.QualifiedName() != "p.A" || info.Superclass != "p.Base" {
				t.Errorf("header = %q extends %q", info.QualifiedName(), info.Superclass)
			}
			if diff := cmp.Diff(map[string]Comment{"void run()": {Text: "Runs."}}, info.Comments); diff != "" {
				t.Errorf("comments (-want +got):\n%s", diff)
			}
		})
	}
}
