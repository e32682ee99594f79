package parser

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dhamidi/jide/java/entity"
)

// Selection is a source range used to locate a structural edit, such as
// inserting an implements clause. Offsets are byte offsets; lines and
// columns are 1-based. An empty selection is an insertion point.
type Selection struct {
	File      string `json:"file,omitempty"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine"`
	EndColumn int    `json:"endColumn"`
}

// Comment is the javadoc text and parameter names of one member.
type Comment struct {
	Text string `json:"text,omitempty"`
	// Params holds the parameter names separated by single spaces.
	Params string `json:"params,omitempty"`
}

type Interface struct {
	Name      string    `json:"name"`
	Selection Selection `json:"selection"`
}

// ClassInfo is the fact sheet for one compilation unit. It describes the
// unit's primary type; Used covers every type in the unit.
type ClassInfo struct {
	Package    string   `json:"package"`
	Name       string   `json:"name"`
	Imports    []string `json:"imports,omitempty"`
	TypeParams []string `json:"typeParams,omitempty"`

	// Superclass is qualified when it resolves and as written otherwise.
	Superclass          string      `json:"superclass,omitempty"`
	SuperclassSelection *Selection  `json:"superclassSelection,omitempty"`
	Interfaces          []Interface `json:"interfaces,omitempty"`

	PackageSelection *Selection `json:"packageSelection,omitempty"`
	NameSelection    Selection  `json:"nameSelection"`
	ExtendsInsert    Selection  `json:"extendsInsert"`
	ImplementsInsert Selection  `json:"implementsInsert"`

	// Comments is keyed by normalized signature, e.g. "void m(int[], String)".
	Comments map[string]Comment `json:"comments"`

	// Used lists the qualified names of source-backed types this unit
	// depends on, sorted. Types declared in the unit are never listed.
	Used []string `json:"used"`

	IsInterface   bool `json:"isInterface,omitempty"`
	IsEnum        bool `json:"isEnum,omitempty"`
	IsRecord      bool `json:"isRecord,omitempty"`
	IsAbstract    bool `json:"isAbstract,omitempty"`
	IsUnitTest    bool `json:"isUnitTest,omitempty"`
	HasMain       bool `json:"hasMain,omitempty"`
	HadParseError bool `json:"hadParseError,omitempty"`
}

func (c *ClassInfo) QualifiedName() string {
	return entity.Qualify(c.Package, c.Name)
}

// InterfaceNames returns the names of the implemented interfaces, or the
// extended interfaces of an interface.
func (c *ClassInfo) InterfaceNames() []string {
	names := make([]string, len(c.Interfaces))
	for i, iface := range c.Interfaces {
		names[i] = iface.Name
	}
	return names
}

type Options struct {
	// File is the path of the source file. It names the primary type and
	// is copied into selections.
	File string
	// Resolver answers for names not declared in the unit. With a nil
	// resolver Used is always empty.
	Resolver entity.Resolver
}

// Parse parses src and extracts its ClassInfo.
func Parse(src []byte, opts Options) *ClassInfo {
	return Extract(ParseFile(src), NewLineMap(src), opts)
}

// Extract builds a ClassInfo from a parse tree. The tree may have been
// patched incrementally; lines must describe the current text.
func Extract(root *ParsedNode, lines *LineMap, opts Options) *ClassInfo {
	info := &ClassInfo{
		Comments:      make(map[string]Comment),
		Used:          []string{},
		HadParseError: root.HadError(),
	}
	x := &extractor{
		info:     info,
		lines:    lines,
		file:     opts.File,
		declared: make(map[string]bool),
		used:     make(map[string]bool),
	}

	var imports []entity.Import
	var types []*ParsedNode
	for _, c := range root.Children() {
		switch c.Kind {
		case KindPackage:
			info.Package = c.Name
			sel := x.selection(c.Start(), c.End())
			info.PackageSelection = &sel
		case KindImport:
			name := c.Name
			if c.Wildcard {
				name += ".*"
			}
			if c.Static {
				name = "static " + name
			}
			info.Imports = append(info.Imports, name)
			imports = append(imports, entity.Import{Name: c.Name, Static: c.Static, Wildcard: c.Wildcard})
		case KindTypeDef:
			if c.Name != "" {
				types = append(types, c)
			}
		}
	}

	primary := primaryType(types, opts.File)
	query := info.Package
	if primary != nil {
		query = entity.Qualify(info.Package, primary.Name)
	}

	unit := entity.NewUnitScope(opts.Resolver, query, info.Package, imports)
	for _, t := range types {
		x.declare(unit, entity.Qualify(info.Package, t.Name))
	}
	x.refs(root, unit)
	for _, t := range types {
		s := x.typeDef(t, unit, entity.Qualify(info.Package, t.Name))
		if t == primary {
			x.primary(t, s)
		}
	}

	for name := range x.used {
		info.Used = append(info.Used, name)
	}
	sort.Strings(info.Used)

	for _, imp := range info.Imports {
		if strings.HasPrefix(imp, "org.junit") || strings.HasPrefix(imp, "junit.") || strings.HasPrefix(imp, "static org.junit") {
			info.IsUnitTest = true
		}
	}
	return info
}

// primaryType picks the type named after the file, then the first public
// type, then the first type.
func primaryType(types []*ParsedNode, file string) *ParsedNode {
	if file != "" {
		base := strings.TrimSuffix(filepath.Base(file), ".java")
		for _, t := range types {
			if t.Name == base {
				return t
			}
		}
	}
	for _, t := range types {
		if t.Type != nil && t.Type.Modifiers.Has(ModPublic) {
			return t
		}
	}
	if len(types) > 0 {
		return types[0]
	}
	return nil
}

type extractor struct {
	info     *ClassInfo
	lines    *LineMap
	file     string
	declared map[string]bool
	used     map[string]bool
}

func (x *extractor) selection(start, end int) Selection {
	s, e := x.lines.Position(start), x.lines.Position(end)
	return Selection{
		File:      x.file,
		Start:     s.Offset,
		End:       e.Offset,
		Line:      s.Line,
		Column:    s.Column,
		EndLine:   e.Line,
		EndColumn: e.Column,
	}
}

func (x *extractor) declare(s *entity.Scope, qualified string) {
	s.DeclareType(&entity.TypeEntity{Name: qualified, Package: s.Package(), Source: x.file})
	x.declared[qualified] = true
}

func (x *extractor) refs(n *ParsedNode, s *entity.Scope) {
	for _, r := range n.Refs {
		t, ok := s.Resolve(r.Name, r.Kind == RefQualifier).(*entity.TypeEntity)
		if !ok || !t.IsSource() || x.declared[t.Name] {
			continue
		}
		x.used[t.Name] = true
	}
}

// typeDef opens the scope of a type: its type parameters, member types
// and fields are visible throughout its body and header.
func (x *extractor) typeDef(n *ParsedNode, outer *entity.Scope, qualified string) *entity.Scope {
	s := outer.Nest()
	if n.Type != nil {
		for _, tp := range n.Type.TypeParams {
			s.DeclareTypeParam(tp)
		}
	}
	for _, v := range n.Values {
		s.DeclareValue(v)
	}
	if body := n.Body(); body != nil {
		for _, c := range body.Children() {
			switch c.Kind {
			case KindTypeDef:
				if c.Name != "" {
					x.declare(s, qualified+"."+c.Name)
				}
			case KindField:
				s.DeclareValue(c.Name)
				for _, v := range c.Values {
					s.DeclareValue(v)
				}
			}
		}
	}
	x.refs(n, s)
	for _, c := range n.Children() {
		x.visit(c, s, qualified)
	}
	return s
}

// visit walks a node below a type. Methods, bodies and fields each get a
// nested scope holding their parameters, locals and local classes.
func (x *extractor) visit(n *ParsedNode, outer *entity.Scope, owner string) {
	switch n.Kind {
	case KindComment:
		return
	case KindTypeDef:
		qualified := owner
		if n.Name != "" {
			qualified = owner + "." + n.Name
		}
		x.typeDef(n, outer, qualified)
		return
	}

	s := outer.Nest()
	if n.Method != nil {
		for _, tp := range n.Method.TypeParams {
			s.DeclareTypeParam(tp)
		}
	}
	for _, v := range n.Values {
		s.DeclareValue(v)
	}
	children := n.Children()
	if n.Kind == KindMethodBody {
		for _, c := range children {
			if c.Kind == KindTypeDef && c.Name != "" {
				x.declare(s, owner+"."+c.Name)
			}
		}
	}
	x.refs(n, s)
	for _, c := range children {
		x.visit(c, s, owner)
	}
}

// primary records the header facts and member comments of the unit's
// primary type. s is the scope of the type.
func (x *extractor) primary(n *ParsedNode, s *entity.Scope) {
	info := x.info
	facts := n.Type
	base := n.Start()

	info.Name = n.Name
	info.TypeParams = facts.TypeParams
	info.IsInterface = facts.Kind == TypeInterface || facts.Kind == TypeAnnotation
	info.IsEnum = facts.Kind == TypeEnum
	info.IsRecord = facts.Kind == TypeRecord
	info.IsAbstract = facts.Modifiers.Has(ModAbstract)

	region := func(r Region) Selection {
		return x.selection(base+r.Start, base+r.End)
	}
	info.NameSelection = region(facts.NameRegion)
	info.ExtendsInsert = region(facts.ExtendsInsert)
	info.ImplementsInsert = region(facts.ImplementsInsert)

	interfaces := facts.Implements
	if info.IsInterface {
		interfaces = facts.Extends
	} else if len(facts.Extends) > 0 {
		sup := facts.Extends[0]
		info.Superclass = qualifyType(s, sup.Name)
		sel := region(sup.Region)
		info.SuperclassSelection = &sel
		if lastSegment(sup.Name) == "TestCase" {
			info.IsUnitTest = true
		}
	}
	for _, iface := range interfaces {
		info.Interfaces = append(info.Interfaces, Interface{
			Name:      qualifyType(s, iface.Name),
			Selection: region(iface.Region),
		})
	}

	body := n.Body()
	if body == nil {
		return
	}
	seen := make(map[string]int)
	for _, c := range body.Children() {
		var key string
		switch c.Kind {
		case KindMethod:
			key = methodKey(c)
			if isMain(c) {
				info.HasMain = true
			}
		case KindInitializer:
			name := "void " + c.Name
			seen[name]++
			if count := seen[name]; count > 1 {
				name += strconv.Itoa(count)
			}
			key = name + "()"
		default:
			continue
		}
		var comment Comment
		if doc := c.DocComment(); doc != nil {
			comment.Text = doc.Text
		}
		if c.Method != nil {
			names := make([]string, len(c.Method.Params))
			for i, p := range c.Method.Params {
				names[i] = p.Name
			}
			comment.Params = strings.Join(names, " ")
		}
		info.Comments[key] = comment
	}
}

// methodKey renders "ReturnType name(T1, T2)", or "Name(T1, T2)" for a
// constructor.
func methodKey(n *ParsedNode) string {
	m := n.Method
	types := make([]string, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type
	}
	sig := n.Name + "(" + strings.Join(types, ", ") + ")"
	if m.Constructor {
		return sig
	}
	return m.ReturnType + " " + sig
}

// isMain reports whether n is "public static void main(String[])".
func isMain(n *ParsedNode) bool {
	m := n.Method
	if n.Name != "main" || m.Constructor || m.ReturnType != "void" || len(m.Params) != 1 {
		return false
	}
	if !m.Modifiers.Has(ModPublic) || !m.Modifiers.Has(ModStatic) {
		return false
	}
	switch m.Params[0].Type {
	case "String[]", "String...", "java.lang.String[]", "java.lang.String...":
		return true
	}
	return false
}

// qualifyType returns the qualified form of a type name as written. Type
// variables and unknown names are returned unchanged.
func qualifyType(s *entity.Scope, name string) string {
	first, rest, dotted := strings.Cut(name, ".")
	switch e := s.ResolveType(first).(type) {
	case *entity.TypeEntity:
		if dotted {
			return e.Name + "." + rest
		}
		return e.Name
	}
	return name
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
