package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		writeFile(t, root, name, content)
	}
	return root
}

func discover(t *testing.T, root string, opts Options) *Project {
	t.Helper()
	p, err := New(root, opts)
	require.NoError(t, err)
	_, err = p.Discover(context.Background())
	require.NoError(t, err)
	return p
}

func targetNames(targets []*ClassTarget) []string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	return names
}

type edge struct {
	from, to string
	kind     EdgeKind
}

func edgeList(edges []*Edge) []edge {
	list := make([]edge, len(edges))
	for i, e := range edges {
		list[i] = edge{e.From.Name, e.To.Name, e.Kind}
	}
	return list
}

var graphSources = map[string]string{
	"p/A.java": "package p;\n\npublic class A extends B implements I {\n    C c;\n}\n",
	"p/B.java": "package p;\n\npublic class B {\n}\n",
	"p/I.java": "package p;\n\npublic interface I {\n}\n",
	"p/J.java": "package p;\n\npublic interface J extends I {\n}\n",
	"p/C.java": "package p;\n\nimport q.D;\n\npublic class C {\n    D d;\n}\n",
	"q/D.java": "package q;\n\npublic class D {\n}\n",
}

func TestDiscover(t *testing.T) {
	root := writeTree(t, graphSources)
	p, err := New(root, Options{Parallelism: 2})
	require.NoError(t, err)

	n, err := p.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	assert.Equal(t, []string{"p.A", "p.B", "p.C", "p.I", "p.J", "q.D"}, targetNames(p.Targets()))

	var pkgs []string
	for _, pkg := range p.Packages() {
		pkgs = append(pkgs, pkg.Name)
	}
	assert.Equal(t, []string{"p", "q"}, pkgs)
	assert.Equal(t, []string{"p.A", "p.B", "p.C", "p.I", "p.J"}, targetNames(p.Packages()[0].Targets()))

	tests := []struct {
		name       string
		target     string
		dependents bool
		want       []edge
	}{
		{
			name:   "class with superclass, interface and field",
			target: "p.A",
			want: []edge{
				{"p.A", "p.B", Uses},
				{"p.A", "p.B", Extends},
				{"p.A", "p.C", Uses},
				{"p.A", "p.I", Uses},
				{"p.A", "p.I", Implements},
			},
		},
		{
			name:   "import from another package",
			target: "p.C",
			want:   []edge{{"p.C", "q.D", Uses}},
		},
		{
			name:   "interface extending an interface",
			target: "p.J",
			want:   []edge{{"p.J", "p.I", Uses}, {"p.J", "p.I", Extends}},
		},
		{
			name:       "dependents",
			target:     "p.I",
			dependents: true,
			want: []edge{
				{"p.A", "p.I", Uses},
				{"p.A", "p.I", Implements},
				{"p.J", "p.I", Uses},
				{"p.J", "p.I", Extends},
			},
		},
		{
			name:   "no dependencies",
			target: "q.D",
			want:   []edge{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var edges []*Edge
			var err error
			if tt.dependents {
				edges, err = p.Dependents(tt.target)
			} else {
				edges, err = p.Dependencies(tt.target)
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, edgeList(edges))
		})
	}

	for _, target := range p.Targets() {
		assert.Equal(t, StateInvalid, target.State(), target.Name)
	}
	assert.Equal(t, []string{"p.B", "p.C", "p.I"}, p.DependsOn("p.A"))

	a, ok := p.TargetByPath(filepath.Join(root, "p", "A.java"))
	require.True(t, ok)
	assert.Equal(t, "p.A", a.Name)
	assert.Equal(t, "A", a.SimpleName())
	assert.Equal(t, filepath.Join(root, "p", "A.ctxt"), a.ContextPath())
	assert.Equal(t, "p.B", a.ClassInfo().Superclass)
}

func TestDiscoverFilters(t *testing.T) {
	root := writeTree(t, map[string]string{
		".gitignore":             "build/\n",
		"p/A.java":               "package p;\npublic class A { }\n",
		"p/ATest.java":           "package p;\npublic class ATest { }\n",
		"p/package-info.java":    "package p;\n",
		"p/notes.txt":            "not java",
		"build/gen/G.java":       "package gen;\npublic class G { }\n",
		".hidden/H.java":         "public class H { }\n",
		"vendor/lib/V.java":      "public class V { }\n",
		"p/.#A.java":             "editor lock file",
		"out/classes/O.java":     "public class O { }\n",
		"deep/vendor/W.java":     "public class W { }\n",
		"deep/vendorless/X.java": "public class X { }\n",
	})
	p, err := New(root, Options{
		OutDir:    filepath.Join(root, "out"),
		Exclude:   []string{"*Test.java", "vendor"},
		Gitignore: true,
	})
	require.NoError(t, err)

	files, err := p.SourceFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "deep", "vendorless", "X.java"),
		filepath.Join(root, "p", "A.java"),
		filepath.Join(root, "p", "package-info.java"),
	}, files)

	_, err = p.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "p.A"}, targetNames(p.Targets()))
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New(t.TempDir(), Options{Exclude: []string{"[a"}})
	assert.Error(t, err)
}

func TestModified(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java": "package p;\nclass A { }\n",
		"p/B.java": "package p;\nclass B { A a; }\n",
		"p/C.java": "package p;\nclass C { B b; }\n",
		"p/D.java": "package p;\nclass D { }\n",
	})
	p := discover(t, root, Options{})
	for _, name := range []string{"p.A", "p.B", "p.C", "p.D"} {
		require.NoError(t, p.SetState(name, StateNormal))
	}

	invalidated, err := p.Modified("p.A")
	require.NoError(t, err)
	assert.Equal(t, []string{"p.A", "p.B", "p.C"}, invalidated)
	assert.Equal(t, []string{"p.A", "p.B", "p.C"}, p.Invalid())

	d, err := p.Target("p.D")
	require.NoError(t, err)
	assert.Equal(t, StateNormal, d.State())

	_, err = p.Modified("p.Nope")
	assert.ErrorIs(t, err, ErrNoSuchTarget)
	assert.ErrorIs(t, p.SetState("p.Nope", StateNormal), ErrNoSuchTarget)
}

func TestRemove(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java": "package p;\nclass A { B b; }\n",
		"p/B.java": "package p;\nclass B { }\n",
		"q/C.java": "package q;\nclass C { }\n",
	})
	p := discover(t, root, Options{})
	require.NoError(t, p.SetState("p.A", StateNormal))

	require.NoError(t, p.Remove("p.B"))

	_, err := p.Target("p.B")
	assert.ErrorIs(t, err, ErrNoSuchTarget)
	deps, err := p.Dependencies("p.A")
	require.NoError(t, err)
	assert.Empty(t, deps)
	a, err := p.Target("p.A")
	require.NoError(t, err)
	assert.Equal(t, StateInvalid, a.State())

	require.NoError(t, p.RemovePath(filepath.Join(root, "q", "C.java")))
	require.Len(t, p.Packages(), 1)
	assert.Equal(t, "p", p.Packages()[0].Name)

	assert.ErrorIs(t, p.Remove("p.B"), ErrNoSuchTarget)
	assert.ErrorIs(t, p.RemovePath(filepath.Join(root, "q", "C.java")), ErrNoSuchTarget)
}

func TestAddResolvesExistingTargets(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java": "package p;\nclass A { B b; }\n",
		"q/C.java": "package q;\nimport p.*;\nclass C { B b; }\n",
	})
	p := discover(t, root, Options{})
	deps, err := p.Dependencies("p.A")
	require.NoError(t, err)
	assert.Empty(t, deps)

	path := writeFile(t, root, "p/B.java", "package p;\nclass B { }\n")
	b, err := p.Add(path)
	require.NoError(t, err)
	assert.Equal(t, "p.B", b.Name)
	assert.Equal(t, StateInvalid, b.State())

	for _, name := range []string{"p.A", "q.C"} {
		deps, err := p.Dependencies(name)
		require.NoError(t, err)
		assert.Equal(t, []edge{{name, "p.B", Uses}}, edgeList(deps), name)
	}
	a, err := p.Target("p.A")
	require.NoError(t, err)
	assert.Equal(t, []string{"p.B"}, a.ClassInfo().Used)
}

func TestReanalyseTogglesEdges(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java": "package p;\nclass A { B b; }\n",
		"p/B.java": "package p;\nclass B { }\n",
	})
	p := discover(t, root, Options{})

	deps, err := p.Dependencies("p.A")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	first := deps[0]

	writeFile(t, root, "p/A.java", "package p;\nclass A { }\n")
	require.NoError(t, p.Reanalyse("p.A"))
	deps, err = p.Dependencies("p.A")
	require.NoError(t, err)
	assert.Empty(t, deps)
	dependents, err := p.Dependents("p.B")
	require.NoError(t, err)
	assert.Empty(t, dependents)

	writeFile(t, root, "p/A.java", "package p;\nclass A { B other; }\n")
	require.NoError(t, p.Reanalyse("p.A"))
	deps, err = p.Dependencies("p.A")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Same(t, first, deps[0])

	assert.ErrorIs(t, p.Reanalyse("p.Nope"), ErrNoSuchTarget)
}

func TestRenamedPrimaryType(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java": "package p;\npublic class A { }\n",
		"p/U.java": "package p;\nclass U { A a; Z z; }\n",
	})
	p := discover(t, root, Options{})

	path := writeFile(t, root, "p/A.java", "package p;\npublic class Z { }\n")
	z, err := p.Add(path)
	require.NoError(t, err)
	assert.Equal(t, "p.Z", z.Name)
	assert.Equal(t, []string{"p.U", "p.Z"}, targetNames(p.Targets()))
	assert.Equal(t, []string{"p.Z"}, p.DependsOn("p.U"))
}

func TestDuplicateType(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java":     "package p;\npublic class A { }\n",
		"p/Other.java": "package p;\nclass A { }\n",
	})
	p, err := New(root, Options{})
	require.NoError(t, err)

	_, err = p.Add(filepath.Join(root, "p", "A.java"))
	require.NoError(t, err)
	_, err = p.Add(filepath.Join(root, "p", "Other.java"))
	assert.Error(t, err)

	a, err := p.Target("p.A")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "p", "A.java"), a.Path)
}

func TestFileWithoutTypes(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java": "package p;\nclass A { }\n",
	})
	p := discover(t, root, Options{})

	path := writeFile(t, root, "p/A.java", "package p;\n")
	target, err := p.Add(path)
	require.NoError(t, err)
	assert.Nil(t, target)
	assert.Empty(t, p.Targets())
}

func TestCompileStates(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java": "package p;\nclass A { }\n",
	})
	p := discover(t, root, Options{})
	a, err := p.Target("p.A")
	require.NoError(t, err)

	p.BeginCompile("j1", []string{"p.A"})
	assert.Equal(t, StateCompiling, a.State())
	p.FinishCompile("j1", []string{"p.A"}, true)
	assert.Equal(t, StateNormal, a.State())

	p.BeginCompile("j2", []string{"p.A"})
	p.FinishCompile("j2", []string{"p.A"}, false)
	assert.Equal(t, StateInvalid, a.State())

	p.BeginCompile("j3", []string{"p.A"})
	_, err = p.Modified("p.A")
	require.NoError(t, err)
	p.FinishCompile("j3", []string{"p.A"}, true)
	assert.Equal(t, StateInvalid, a.State())
}

func TestStaleJobLeavesNewerCompile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java": "package p;\nclass A { }\n",
	})
	p := discover(t, root, Options{})
	a, err := p.Target("p.A")
	require.NoError(t, err)

	p.BeginCompile("old", []string{"p.A"})
	_, err = p.Modified("p.A")
	require.NoError(t, err)
	p.BeginCompile("new", []string{"p.A"})

	p.FinishCompile("old", []string{"p.A"}, true)
	assert.Equal(t, StateCompiling, a.State(), "outcome of the superseded job applied")

	p.FinishCompile("new", []string{"p.A"}, false)
	assert.Equal(t, StateInvalid, a.State())
}

func TestCycles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/X.java": "package p;\nclass X { Y y; }\n",
		"p/Y.java": "package p;\nclass Y { X x; }\n",
		"p/Z.java": "package p;\nclass Z { X x; }\n",
	})
	p := discover(t, root, Options{})
	assert.Equal(t, [][]string{{"p.X", "p.Y"}}, p.Cycles())
}

func TestStronglyConnectedComponents(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges map[string][]string
		want  [][]string
	}{
		{
			name:  "single node",
			nodes: []string{"a"},
			want:  [][]string{{"a"}},
		},
		{
			name:  "chain closes dependencies first",
			nodes: []string{"a", "b", "c"},
			edges: map[string][]string{"a": {"b"}, "b": {"c"}},
			want:  [][]string{{"c"}, {"b"}, {"a"}},
		},
		{
			name:  "mutual uses and an independent node",
			nodes: []string{"x", "y", "z"},
			edges: map[string][]string{"x": {"y"}, "y": {"x"}},
			want:  [][]string{{"x", "y"}, {"z"}},
		},
		{
			name:  "dependent of a cycle",
			nodes: []string{"c", "a", "b"},
			edges: map[string][]string{"a": {"b"}, "b": {"a"}, "c": {"a"}},
			want:  [][]string{{"a", "b"}, {"c"}},
		},
		{
			name:  "nodes reached through edges",
			nodes: []string{"a"},
			edges: map[string][]string{"a": {"b"}},
			want:  [][]string{{"b"}, {"a"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StronglyConnectedComponents(tt.nodes, func(n string) []string { return tt.edges[n] })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypoKeepsTarget(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java": "package p;\nimport java.util.List;\npublic class A extends B { }\n",
		"p/B.java": "package p;\npublic class B { }\n",
		"p/C.java": "package p;\nclass C { A a; }\n",
	})
	p := discover(t, root, Options{})
	require.NoError(t, p.SetState("p.C", StateNormal))

	target, err := p.ApplySource(filepath.Join(root, "p", "A.java"),
		[]byte("package p;\nimport java.util.List\npublic class A extends B { }\n"))
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, "p.A", target.Name)
	assert.True(t, target.ClassInfo().HadParseError)

	deps, err := p.Dependencies("p.A")
	require.NoError(t, err)
	assert.Equal(t, []edge{{"p.A", "p.B", Uses}, {"p.A", "p.B", Extends}}, edgeList(deps))
	c, err := p.Target("p.C")
	require.NoError(t, err)
	assert.Equal(t, StateNormal, c.State())
}
