package project

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"github.com/magiconair/properties"

	"github.com/dhamidi/jide/java/parser"
)

const contextHeader = "#jide class context\n"

// WriteContext regenerates a target's .ctxt file from a fresh parse of its
// source.
func (p *Project) WriteContext(name string) error {
	t, err := p.Target(name)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(t.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", t.Path, err)
	}
	info := parser.Parse(src, parser.Options{File: t.Path})
	return WriteContextFile(t.ContextPath(), info.Comments)
}

// WriteContextFile writes comments as a property list. Each member gets
// comment<N>.target with its signature and, when present, comment<N>.text
// and comment<N>.params. Members are numbered in signature order.
func WriteContextFile(path string, comments map[string]parser.Comment) error {
	keys := make([]string, 0, len(comments))
	for k := range comments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := properties.NewProperties()
	props.DisableExpansion = true
	for i, key := range keys {
		c := comments[key]
		prefix := fmt.Sprintf("comment%d.", i)
		props.MustSet(prefix+"target", key)
		if c.Text != "" {
			props.MustSet(prefix+"text", c.Text)
		}
		if c.Params != "" {
			props.MustSet(prefix+"params", c.Params)
		}
	}
	props.MustSet("numComments", fmt.Sprint(len(keys)))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(contextHeader); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := props.Write(w, properties.UTF8); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadContextFile reads a file written by WriteContextFile.
func ReadContextFile(path string) (map[string]parser.Comment, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	props, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	n := props.GetInt("numComments", 0)
	comments := make(map[string]parser.Comment, n)
	for i := 0; i < n; i++ {
		prefix := fmt.Sprintf("comment%d.", i)
		target, ok := props.Get(prefix + "target")
		if !ok {
			return nil, fmt.Errorf("%s: missing %starget", path, prefix)
		}
		comments[target] = parser.Comment{
			Text:   props.GetString(prefix+"text", ""),
			Params: props.GetString(prefix+"params", ""),
		}
	}
	return comments, nil
}
