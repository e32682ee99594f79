package project

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dhamidi/jide/java/parser"
	"github.com/dhamidi/jide/observability"
)

// Discover finds every source file below the root and links them into the
// graph. Files are parsed in parallel; all types are defined before any
// file resolves its names, so the order of files does not matter. It
// returns the number of targets afterwards.
func (p *Project) Discover(ctx context.Context) (int, error) {
	ctx, span := observability.Tracer.Start(ctx, "project.Discover",
		trace.WithAttributes(attribute.String("root", p.RootDir)))
	defer span.End()

	files, err := p.SourceFiles()
	if err != nil {
		return 0, err
	}
	log.Infof("discovered %d source files in %s", len(files), p.RootDir)

	analyses := make([]*analysis, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism())
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			analyses[i] = analyse(file, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return 0, err
	}

	p.mu.Lock()
	for _, a := range analyses {
		p.defineLocked(a)
	}
	p.mu.Unlock()

	infos := make([]*parser.ClassInfo, len(analyses))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism())
	for i, a := range analyses {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			infos[i] = p.extract(a.tree, a.lines, a.path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.updateGaugesLocked()
	for i, a := range analyses {
		if _, err := p.linkLocked(a, infos[i], false); err != nil {
			log.Warningf("%s", err)
		}
	}
	// An edge needs both ends linked, so flag once every target exists.
	for _, t := range p.targets {
		p.flagEdgesLocked(t)
	}
	span.SetAttributes(attribute.Int("targets", len(p.targets)))
	return len(p.targets), nil
}

// SourceFiles lists the .java files below the root, sorted. Hidden
// directories, the output directory, excluded paths and, if enabled,
// paths ignored by the root .gitignore are skipped.
func (p *Project) SourceFiles() ([]string, error) {
	filter := p.newSourceFilter()

	var files []string
	err := filepath.WalkDir(p.RootDir, func(file string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warningf("walk %s: %s", file, err)
			return nil
		}
		if file == p.RootDir {
			return nil
		}
		if d.IsDir() {
			if filter.skipDir(file) {
				return filepath.SkipDir
			}
			return nil
		}
		if filter.keepFile(file) {
			files = append(files, file)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", p.RootDir, err)
	}
	sort.Strings(files)
	return files, nil
}

// sourceFilter decides which paths below the root hold sources.
type sourceFilter struct {
	p      *Project
	gi     *ignore.GitIgnore
	outDir string
}

func (p *Project) newSourceFilter() *sourceFilter {
	f := &sourceFilter{p: p, outDir: filepath.Clean(p.OutDir)}
	if p.opts.Gitignore {
		f.gi = loadGitignore(p.RootDir)
	}
	return f
}

// rel returns file relative to the root with forward slashes.
func (f *sourceFilter) rel(file string) (string, bool) {
	rel, err := filepath.Rel(f.p.RootDir, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (f *sourceFilter) skipDir(dir string) bool {
	if dir == f.p.RootDir {
		return false
	}
	if strings.HasPrefix(filepath.Base(dir), ".") || (dir == f.outDir && f.outDir != f.p.RootDir) {
		return true
	}
	rel, ok := f.rel(dir)
	if !ok {
		return true
	}
	return f.p.excluded(rel) || (f.gi != nil && f.gi.MatchesPath(rel+"/"))
}

func (f *sourceFilter) keepFile(file string) bool {
	if filepath.Ext(file) != ".java" || strings.HasPrefix(filepath.Base(file), ".") {
		return false
	}
	rel, ok := f.rel(file)
	if !ok || f.p.excluded(rel) {
		return false
	}
	return f.gi == nil || !f.gi.MatchesPath(rel)
}

// excluded matches rel, a slash-separated path relative to the root,
// against the exclude patterns.
func (p *Project) excluded(rel string) bool {
	base := path.Base(rel)
	for _, g := range p.exclude {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
