// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package javasrc loads Java source files into the intermediate representation of the dependence analyses.
//
// Files are parsed with tree-sitter. Every class, interface, enum and record, nested ones included, becomes a type
// named by its binary name (e.g. org.example.Outer$Inner). Methods and constructors with a body are lowered into
// units close to what a bytecode frontend produces: one unit per simple statement, explicit gotos closing branches
// and loops, identity units for this and the parameters, and traps for try blocks. Field initializers are lowered
// into the constructors, and static initializers into <clinit>.
package javasrc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/ar-go-pdg/analysis/config"
	"github.com/awslabs/ar-go-pdg/analysis/ir"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"golang.org/x/exp/slices"
)

// JavaExt is the extension of the files loaded from directories
const JavaExt = ".java"

// LoadFiles parses the Java files in paths and lowers their types. Directories are walked recursively for .java
// files. Files with syntax errors are lowered as far as the parser could recover, with a warning.
func LoadFiles(ctx context.Context, logger *config.LogGroup, paths []string) (*ir.Program, error) {
	files, err := expand(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no java files in %s", strings.Join(paths, ", "))
	}

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	prog := &ir.Program{}
	seen := map[string]string{}
	for _, filename := range files {
		content, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", filename, err)
		}
		tree, err := parser.ParseCtx(ctx, nil, content)
		if err != nil {
			return nil, fmt.Errorf("parsing file %s: %w", filename, err)
		}
		root := tree.RootNode()
		if root.HasError() {
			logger.Warnf("%s: syntax errors, some statements are not lowered", filename)
		}
		for _, t := range LowerFile(root, content, logger) {
			if other, ok := seen[t.Name]; ok {
				logger.Warnf("Type %s in %s is already declared in %s, ignored", t.Name, filename, other)
				continue
			}
			seen[t.Name] = filename
			prog.Types = append(prog.Types, t)
		}
		tree.Close()
	}
	slices.SortFunc(prog.Types, func(a, b *ir.Type) bool { return a.Name < b.Name })
	return prog, nil
}

func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, JavaExt) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("could not walk %s: %w", p, err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// A file is a parsed compilation unit
type file struct {
	src      []byte
	pkg      string
	imports  map[string]string // simple name -> qualified name
	onDemand map[string]bool   // packages imported with .*
	classes  map[string]string // simple name -> binary name, for the classes of the file
	logger   *config.LogGroup
}

// A class is a type declaration of a file
type class struct {
	name         string
	node         *sitter.Node
	body         *sitter.Node
	isInterface  bool
	fields       map[string]bool
	staticFields map[string]bool
}

// LowerFile returns the types declared in the compilation unit root. Method bodies are lowered eagerly: nodes of a
// tree must not be read concurrently.
func LowerFile(root *sitter.Node, src []byte, logger *config.LogGroup) []*ir.Type {
	f := &file{
		src:      src,
		imports:  map[string]string{},
		onDemand: map[string]bool{},
		classes:  map[string]string{},
		logger:   logger,
	}
	var decls []*sitter.Node
	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "package_declaration":
			if name := firstNamed(n); name != nil {
				f.pkg = f.text(name)
			}
		case "import_declaration":
			f.addImport(n)
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			decls = append(decls, n)
		}
	}
	var classes []*class
	for _, d := range decls {
		classes = f.collect(d, "", classes)
	}
	var types []*ir.Type
	for _, c := range classes {
		types = append(types, f.lowerClass(c))
	}
	return types
}

func (f *file) addImport(n *sitter.Node) {
	text := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(f.text(n), "import"), ";"))
	if strings.HasPrefix(text, "static ") {
		return
	}
	if pkg, ok := strings.CutSuffix(text, ".*"); ok {
		f.onDemand[strings.TrimSpace(pkg)] = true
		return
	}
	if i := strings.LastIndexByte(text, '.'); i > 0 {
		f.imports[text[i+1:]] = text
	}
}

// collect appends the class declared by n and its nested classes to classes.
func (f *file) collect(n *sitter.Node, outer string, classes []*class) []*class {
	simple := f.text(n.ChildByFieldName("name"))
	name := simple
	switch {
	case outer != "":
		name = outer + "$" + simple
	case f.pkg != "":
		name = f.pkg + "." + simple
	}
	if _, ok := f.classes[simple]; !ok {
		f.classes[simple] = name
	}
	c := &class{
		name:         name,
		node:         n,
		body:         n.ChildByFieldName("body"),
		isInterface:  n.Type() == "interface_declaration",
		fields:       map[string]bool{},
		staticFields: map[string]bool{},
	}
	classes = append(classes, c)
	for _, m := range c.members() {
		switch m.Type() {
		case "field_declaration", "constant_declaration":
			static := c.isInterface || f.hasModifier(m, "static")
			for _, d := range childrenByField(m, "declarator") {
				name := f.text(d.ChildByFieldName("name"))
				c.fields[name] = true
				c.staticFields[name] = static
			}
		case "enum_constant":
			name := f.text(m.ChildByFieldName("name"))
			c.fields[name] = true
			c.staticFields[name] = true
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			classes = f.collect(m, name, classes)
		}
	}
	return classes
}

// members returns the member declarations of the class body
func (c *class) members() []*sitter.Node {
	if c.body == nil {
		return nil
	}
	var res []*sitter.Node
	for _, m := range namedChildren(c.body) {
		if m.Type() == "enum_body_declarations" {
			res = append(res, namedChildren(m)...)
		} else {
			res = append(res, m)
		}
	}
	return res
}

func (f *file) lowerClass(c *class) *ir.Type {
	t := &ir.Type{Name: c.name}
	var ctors, instanceInit, staticInit []*sitter.Node
	for _, m := range c.members() {
		switch m.Type() {
		case "field_declaration", "constant_declaration":
			if c.isInterface || f.hasModifier(m, "static") {
				staticInit = append(staticInit, m)
			} else {
				instanceInit = append(instanceInit, m)
			}
		case "static_initializer":
			staticInit = append(staticInit, m)
		case "block":
			instanceInit = append(instanceInit, m)
		case "constructor_declaration":
			ctors = append(ctors, m)
		}
	}

	for _, m := range c.members() {
		switch m.Type() {
		case "method_declaration":
			t.Methods = append(t.Methods, f.method(c, m))
		case "constructor_declaration":
			t.Methods = append(t.Methods, f.constructor(c, m, instanceInit))
		}
	}
	if len(ctors) == 0 && !c.isInterface {
		t.Methods = append(t.Methods, f.defaultConstructor(c, instanceInit))
	}
	if hasInitializer(staticInit) {
		t.Methods = append(t.Methods, f.classInitializer(c, staticInit))
	}
	return t
}

// hasInitializer returns true if some of the declarations execute code
func hasInitializer(decls []*sitter.Node) bool {
	for _, d := range decls {
		if d.Type() != "field_declaration" && d.Type() != "constant_declaration" {
			return true
		}
		for _, v := range childrenByField(d, "declarator") {
			if v.ChildByFieldName("value") != nil {
				return true
			}
		}
	}
	return false
}

func (f *file) method(c *class, m *sitter.Node) *ir.Method {
	name := f.text(m.ChildByFieldName("name"))
	ret := f.typeName(m.ChildByFieldName("type"), m.ChildByFieldName("dimensions"))
	params := m.ChildByFieldName("parameters")
	sig := signature(c.name, ret, name, f.paramTypes(params))
	body := m.ChildByFieldName("body")
	if body == nil {
		return ir.NewAbstractMethod(name, sig)
	}
	static := f.hasModifier(m, "static")
	return f.lowered(name, sig, func(l *lowerer) {
		l.enter(static, params)
		l.block(body)
		l.exit(ret == "void", body)
	}, c, static)
}

func (f *file) constructor(c *class, m *sitter.Node, instanceInit []*sitter.Node) *ir.Method {
	params := m.ChildByFieldName("parameters")
	sig := signature(c.name, "void", "<init>", f.paramTypes(params))
	body := m.ChildByFieldName("body")
	return f.lowered("<init>", sig, func(l *lowerer) {
		l.enter(false, params)
		stmts := namedChildren(body)
		delegates := false
		if len(stmts) > 0 && stmts[0].Type() == "explicit_constructor_invocation" {
			delegates = f.text(stmts[0].ChildByFieldName("constructor")) == "this"
			l.stmt(stmts[0])
			stmts = stmts[1:]
		}
		// a constructor delegating to another one of the class does not run the initializers
		if !delegates {
			l.initializers(instanceInit)
		}
		for _, s := range stmts {
			l.stmt(s)
		}
		l.exit(true, body)
	}, c, false)
}

func (f *file) defaultConstructor(c *class, instanceInit []*sitter.Node) *ir.Method {
	sig := signature(c.name, "void", "<init>", nil)
	return f.lowered("<init>", sig, func(l *lowerer) {
		l.enter(false, nil)
		l.b.Invoke(line(c.node), ir.Invoke{Receiver: this, Method: "<init>"})
		l.initializers(instanceInit)
		l.b.Return(line(c.node))
	}, c, false)
}

func (f *file) classInitializer(c *class, staticInit []*sitter.Node) *ir.Method {
	sig := signature(c.name, "void", "<clinit>", nil)
	return f.lowered("<clinit>", sig, func(l *lowerer) {
		l.initializers(staticInit)
		l.b.Return(ir.NoLine)
	}, c, true)
}

// lowered returns the method whose body is built by lower. Lowering errors are reported when the body is
// requested.
func (f *file) lowered(name, sig string, lower func(*lowerer), c *class, static bool) *ir.Method {
	l := newLowerer(f, c, static)
	lower(l)
	body, err := l.b.Build()
	if err != nil {
		f.logger.Debugf("Could not lower %s: %v", sig, err)
		return ir.NewMethod(name, sig, func() (*ir.Body, error) { return nil, err })
	}
	return ir.NewMethodWithBody(name, sig, body)
}

func signature(className, ret, name string, params []string) string {
	return "<" + className + ": " + ret + " " + name + "(" + strings.Join(params, ",") + ")>"
}

func (f *file) paramTypes(params *sitter.Node) []string {
	var res []string
	for _, p := range namedChildren(params) {
		switch p.Type() {
		case "formal_parameter":
			res = append(res, f.typeName(p.ChildByFieldName("type"), p.ChildByFieldName("dimensions")))
		case "spread_parameter":
			for _, c := range namedChildren(p) {
				if c.Type() != "modifiers" && c.Type() != "variable_declarator" {
					res = append(res, f.typeName(c, nil)+"[]")
					break
				}
			}
		}
	}
	return res
}

// knownTypes maps common platform types to their package. Types of java.lang are always visible; the others are
// resolved when their package is imported on demand.
var knownTypes = map[string]string{}

func init() {
	for pkg, names := range map[string][]string{
		"java.lang": {"Object", "String", "Integer", "Long", "Short", "Byte", "Character", "Boolean", "Double",
			"Float", "Number", "Math", "System", "Class", "Thread", "Runnable", "Iterable", "Comparable",
			"CharSequence", "StringBuilder", "StringBuffer", "AutoCloseable", "Enum", "Void", "Throwable",
			"Exception", "RuntimeException", "Error", "AssertionError", "OutOfMemoryError", "StackOverflowError",
			"IllegalArgumentException", "IllegalStateException", "NullPointerException", "ArithmeticException",
			"IndexOutOfBoundsException", "ArrayIndexOutOfBoundsException", "StringIndexOutOfBoundsException",
			"ArrayStoreException", "NegativeArraySizeException", "ClassCastException", "NumberFormatException",
			"UnsupportedOperationException", "InterruptedException", "CloneNotSupportedException",
			"SecurityException", "ClassNotFoundException", "ReflectiveOperationException",
			"IllegalMonitorStateException"},
		"java.util": {"List", "ArrayList", "LinkedList", "Map", "HashMap", "TreeMap", "LinkedHashMap", "Set",
			"HashSet", "TreeSet", "LinkedHashSet", "Collection", "Collections", "Arrays", "Iterator", "Deque",
			"ArrayDeque", "Queue", "PriorityQueue", "Stack", "Vector", "Optional", "Objects", "Scanner", "Random",
			"NoSuchElementException", "ConcurrentModificationException", "InputMismatchException",
			"EmptyStackException"},
		"java.io": {"File", "InputStream", "OutputStream", "Reader", "Writer", "BufferedReader", "BufferedWriter",
			"InputStreamReader", "FileReader", "FileWriter", "PrintStream", "PrintWriter", "Closeable",
			"Serializable", "IOException", "FileNotFoundException", "UncheckedIOException", "EOFException"},
	} {
		for _, name := range names {
			knownTypes[name] = pkg
		}
	}
}

// typeName returns the erased, qualified name of the type node, with the extra array dimensions
func (f *file) typeName(t *sitter.Node, dims *sitter.Node) string {
	if t == nil {
		return "void"
	}
	name := erase(f.text(t))
	suffix := ""
	for strings.HasSuffix(name, "[]") {
		name = strings.TrimSuffix(name, "[]")
		suffix += "[]"
	}
	if dims != nil {
		suffix += strings.ReplaceAll(f.text(dims), " ", "")
	}
	return f.qualify(name) + suffix
}

func (f *file) qualify(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	if q, ok := f.imports[name]; ok {
		return q
	}
	if q, ok := f.classes[name]; ok {
		return q
	}
	if pkg, ok := knownTypes[name]; ok && (pkg == "java.lang" || f.onDemand[pkg]) {
		return pkg + "." + name
	}
	return name
}

// erase removes type arguments, annotations and spaces
func erase(t string) string {
	var b strings.Builder
	depth := 0
	for _, r := range t {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth == 0 && r != ' ' && r != '\t' && r != '\n':
			b.WriteRune(r)
		}
	}
	s := b.String()
	for strings.HasPrefix(s, "@") {
		i := strings.IndexAny(s, " ")
		if i < 0 {
			break
		}
		s = s[i+1:]
	}
	return s
}

func (f *file) hasModifier(decl *sitter.Node, modifier string) bool {
	for _, c := range namedChildren(decl) {
		if c.Type() != "modifiers" {
			continue
		}
		for i := 0; i < int(c.ChildCount()); i++ {
			if c.Child(i).Type() == modifier {
				return true
			}
		}
	}
	return false
}

func (f *file) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.src)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var res []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || isComment(c) {
			continue
		}
		res = append(res, c)
	}
	return res
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if c := namedChildren(n); len(c) > 0 {
		return c[0]
	}
	return nil
}

func childrenByField(n *sitter.Node, field string) []*sitter.Node {
	var res []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			res = append(res, n.Child(i))
		}
	}
	return res
}

func isComment(n *sitter.Node) bool {
	return n.Type() == "line_comment" || n.Type() == "block_comment" || n.Type() == "comment"
}
