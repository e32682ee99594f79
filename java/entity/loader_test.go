package entity

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// classBytes builds a class file header for name with the given
// superclass and interfaces, all in binary form.
func classBytes(name, super string, interfaces ...string) []byte {
	var pool bytes.Buffer
	count := uint16(1)
	u2 := func(b *bytes.Buffer, v uint16) { binary.Write(b, binary.BigEndian, v) }
	class := func(n string) uint16 {
		pool.WriteByte(1)
		u2(&pool, uint16(len(n)))
		pool.WriteString(n)
		pool.WriteByte(7)
		u2(&pool, count)
		count += 2
		return count - 1
	}
	this := class(name)
	superIdx := class(super)
	var ifaces []uint16
	for _, i := range interfaces {
		ifaces = append(ifaces, class(i))
	}

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, uint32(0xCAFEBABE))
	u2(&out, 0)
	u2(&out, 61)
	u2(&out, count)
	out.Write(pool.Bytes())
	u2(&out, 0x0021)
	u2(&out, this)
	u2(&out, superIdx)
	u2(&out, uint16(len(ifaces)))
	for _, i := range ifaces {
		u2(&out, i)
	}
	return out.Bytes()
}

func TestClassLoaderResolverDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"com/acme/Base.class":        classBytes("com/acme/Base", "java/lang/Object"),
		"com/acme/Base$Nested.class": classBytes("com/acme/Base$Nested", "java/lang/Object"),
		"com/acme/Base$1.class":      classBytes("com/acme/Base$1", "java/lang/Object"),
		"com/acme/Impl.class":        classBytes("com/acme/Impl", "com/acme/Base", "java/lang/Runnable"),
	}
	for name, data := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r, err := NewClassLoaderResolver([]string{dir, filepath.Join(dir, "missing")})
	if err != nil {
		t.Fatalf("NewClassLoaderResolver: %v", err)
	}

	impl, ok := r.ResolvePackageOrClass("com.acme.Impl", "").(*TypeEntity)
	if !ok {
		t.Fatal("com.acme.Impl not found")
	}
	if impl.Superclass != "com.acme.Base" {
		t.Errorf("Superclass = %q, want com.acme.Base", impl.Superclass)
	}
	if len(impl.Interfaces) != 1 || impl.Interfaces[0] != "java.lang.Runnable" {
		t.Errorf("Interfaces = %v, want [java.lang.Runnable]", impl.Interfaces)
	}
	if impl.IsSource() {
		t.Error("compiled classes are not source-backed")
	}
	if impl.Package != "com.acme" {
		t.Errorf("Package = %q, want com.acme", impl.Package)
	}

	if _, ok := r.ResolvePackageOrClass("com.acme.Base.Nested", "").(*TypeEntity); !ok {
		t.Error("nested class should resolve by its source name")
	}
	if e := r.ResolvePackageOrClass("com.acme.Base.1", ""); e != nil {
		t.Errorf("anonymous class resolved to %v", e)
	}
	if _, ok := r.ResolvePackageOrClass("com", "").(*PackageEntity); !ok {
		t.Error("com should be a package")
	}
}

func TestClassLoaderResolverJar(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "lib.jar")
	f, err := os.Create(jar)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, data := range map[string][]byte{
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\n"),
		"org/lib/Thing.class":  classBytes("org/lib/Thing", "java/lang/Object"),
		"org/lib/Broken.class": []byte("not a class"),
		"module-info.class":    classBytes("module-info", "java/lang/Object"),
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write(data)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r, err := NewClassLoaderResolver([]string{jar})
	if err != nil {
		t.Fatalf("NewClassLoaderResolver: %v", err)
	}

	thing, ok := r.ResolvePackageOrClass("org.lib.Thing", "").(*TypeEntity)
	if !ok {
		t.Fatal("org.lib.Thing not found")
	}
	if thing.Superclass != "java.lang.Object" {
		t.Errorf("Superclass = %q", thing.Superclass)
	}

	// A class that cannot be read still exists by name.
	broken, ok := r.ResolvePackageOrClass("org.lib.Broken", "").(*TypeEntity)
	if !ok || broken.Package != "org.lib" {
		t.Errorf("org.lib.Broken = %v", broken)
	}
	if e := r.ResolvePackageOrClass("module-info", ""); e != nil {
		t.Errorf("module-info resolved to %v", e)
	}
}

func TestProjectResolverFallsBackToClasspath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Lib.class")
	if err := os.WriteFile(path, classBytes("Lib", "java/lang/Object"), 0o644); err != nil {
		t.Fatal(err)
	}
	cl, err := NewClassLoaderResolver([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	project := NewProjectResolver(cl)
	project.Define(&TypeEntity{Name: "Main", Source: "Main.java"})

	if e, ok := project.ResolvePackageOrClass("Lib", "Main").(*TypeEntity); !ok || e.IsSource() {
		t.Errorf("Lib = %v, want a compiled type", e)
	}
	if e, ok := project.ResolvePackageOrClass("Main", "Main").(*TypeEntity); !ok || !e.IsSource() {
		t.Errorf("Main = %v, want a source type", e)
	}
}
