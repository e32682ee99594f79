package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForChange(t *testing.T, changes <-chan []Change, match func(Change) bool) Change {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case batch := <-changes:
			for _, c := range batch {
				if match(c) {
					return c
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for change")
			return Change{}
		}
	}
}

func TestWatcher(t *testing.T) {
	root := writeTree(t, map[string]string{
		"p/A.java": "package p;\nclass A { }\n",
		"p/B.java": "package p;\nclass B { A a; }\n",
	})
	p := discover(t, root, Options{})
	for _, name := range []string{"p.A", "p.B"} {
		require.NoError(t, p.SetState(name, StateNormal))
	}

	changes := make(chan []Change, 16)
	w, err := NewWatcher(p, 20*time.Millisecond, func(batch []Change) { changes <- batch })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Close() })

	aPath := filepath.Join(root, "p", "A.java")
	writeFile(t, root, "p/A.java", "package p;\nclass A { int x; }\n")
	c := waitForChange(t, changes, func(c Change) bool { return c.Path == aPath })
	assert.Equal(t, "p.A", c.Target)
	assert.Equal(t, []string{"p.A", "p.B"}, c.Invalidated)

	cPath := writeFile(t, root, "p/C.java", "package p;\nclass C { B b; }\n")
	c = waitForChange(t, changes, func(c Change) bool { return c.Path == cPath })
	assert.Equal(t, "p.C", c.Target)
	assert.Equal(t, []string{"p.B"}, p.DependsOn("p.C"))

	writeFile(t, root, "p/notes.txt", "ignored")

	bPath := filepath.Join(root, "p", "B.java")
	require.NoError(t, os.Remove(bPath))
	c = waitForChange(t, changes, func(c Change) bool { return c.Path == bPath && c.Removed })
	assert.Equal(t, []string{"p.C"}, c.Invalidated)
	assert.Equal(t, []string{"p.A", "p.C"}, targetNames(p.Targets()))

	qPath := writeFile(t, root, "q/D.java", "package q;\nclass D { }\n")
	c = waitForChange(t, changes, func(c Change) bool { return c.Path == qPath })
	assert.Equal(t, "q.D", c.Target)
}

func TestWatcherCloseWithoutStart(t *testing.T) {
	p, err := New(t.TempDir(), Options{})
	require.NoError(t, err)
	w, err := NewWatcher(p, time.Millisecond, nil)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
