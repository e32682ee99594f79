package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSources(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newDepsCmd()
	switch args[0] {
	case "ctxt":
		cmd = newCtxtCmd()
	case "version":
		cmd = newVersionCmd()
	}
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args[1:])
	err := cmd.Execute()
	return out.String(), err
}

func TestDepsCmd(t *testing.T) {
	root := writeSources(t, map[string]string{
		"p/A.java": "package p;\nclass A extends B { }\n",
		"p/B.java": "package p;\nclass B { A a; }\n",
		"p/C.java": "package p;\nclass C implements I { }\n",
		"p/I.java": "package p;\ninterface I { }\n",
	})

	out, err := run(t, "deps", root)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"p.A [invalid] "+filepath.Join(root, "p", "A.java")+"\n"+
		"  uses p.B\n"+
		"  extends p.B\n"+
		"p.B [invalid] "+filepath.Join(root, "p", "B.java")+"\n"+
		"  uses p.A\n"+
		"p.C [invalid] "+filepath.Join(root, "p", "C.java")+"\n"+
		"  uses p.I\n"+
		"  implements p.I\n"+
		"p.I [invalid] "+filepath.Join(root, "p", "I.java")+"\n"+
		"\n"+
		"cycles:\n"+
		"  p.A p.B\n", out)

	out, err = run(t, "deps", "--format", "dot", root)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph deps {")
	assert.Contains(t, out, `"p.A" -> "p.B" [style=bold];`)
	assert.Contains(t, out, `"p.B" -> "p.A";`)

	_, err = run(t, "deps", "--format", "xml", root)
	assert.EqualError(t, err, "unknown format: xml")
}

func TestCtxtCmd(t *testing.T) {
	root := writeSources(t, map[string]string{
		"A.java": "class A {\n    /** Adds. */\n    int add(int a, int b) { return a + b; }\n}\n",
	})
	src := filepath.Join(root, "A.java")

	out, err := run(t, "ctxt", src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "A.ctxt")+"\n", out)

	out, err = run(t, "ctxt", "--show", src)
	require.NoError(t, err)
	assert.Contains(t, out, `"int add(int, int)"`)
	assert.Contains(t, out, `"Adds."`)
	assert.Contains(t, out, `"a b"`)
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "jide "+version+"\n", out)
}
