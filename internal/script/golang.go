package script

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/vk/logicrouter/internal/config"
	"github.com/vk/logicrouter/internal/ctxlog"
	"github.com/vk/logicrouter/internal/registry"
)

// scriptPackage is the package every Go script is evaluated as.
const scriptPackage = "main"

// defaultAllowedImports keeps scripts away from the filesystem, the network
// and process control.
var defaultAllowedImports = []string{
	"bytes",
	"context",
	"encoding/base64",
	"encoding/json",
	"errors",
	"fmt",
	"math",
	"path",
	"regexp",
	"sort",
	"strconv",
	"strings",
	"time",
	"unicode",
	"unicode/utf8",
}

// GoRuntime interprets Go scripts with yaegi. A script is a single file; its
// package clause may be omitted, which is convenient for inline manifest code.
type GoRuntime struct {
	AllowedImports      map[string]bool
	UnrestrictedImports bool
}

// NewGoRuntime creates a Go runtime with the default import allowlist.
func NewGoRuntime() *GoRuntime {
	allowed := make(map[string]bool, len(defaultAllowedImports))
	for _, pkg := range defaultAllowedImports {
		allowed[pkg] = true
	}
	return &GoRuntime{AllowedImports: allowed}
}

// Language implements Runtime.
func (r *GoRuntime) Language() config.Language {
	return config.LanguageGo
}

// Load implements Runtime.
func (r *GoRuntime) Load(ctx context.Context, def *config.LogicDefinition) (registry.Handler, error) {
	logger := ctxlog.FromContext(ctx)

	src, err := os.ReadFile(def.Source)
	if err != nil {
		return nil, newResolutionError(def, errors.Wrap(err, "could not read script"))
	}

	fset := token.NewFileSet()
	src = withPackageClause(fset, src)
	file, err := parser.ParseFile(fset, def.Source, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, newResolutionError(def, errors.Wrap(err, "could not parse script"))
	}

	if err := r.validateImports(file); err != nil {
		return nil, newResolutionError(def, err)
	}

	entry, err := selectEntryPoint(def.Name, exportedFuncs(file))
	if err != nil {
		return nil, newResolutionError(def, err)
	}
	logger.Debug("Go entry point selected.", "name", def.Name, "function", entry)

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, newResolutionError(def, errors.Wrap(err, "could not load standard library symbols"))
	}
	if _, err := i.EvalWithContext(ctx, renamePackage(fset, file, src)); err != nil {
		return nil, newResolutionError(def, errors.Wrap(err, "script evaluation failed"))
	}
	fn, err := i.EvalWithContext(ctx, scriptPackage+"."+entry)
	if err != nil {
		return nil, newResolutionError(def, errors.Wrapf(err, "could not look up %s", entry))
	}

	h, err := registry.NewFuncHandler(fn.Interface())
	if err != nil {
		return nil, newResolutionError(def, errors.Wrapf(err, "entry point %s", entry))
	}
	return h, nil
}

// validateImports rejects imports outside the allowlist.
func (r *GoRuntime) validateImports(file *ast.File) error {
	if r.UnrestrictedImports {
		return nil
	}
	var forbidden []string
	for _, imp := range file.Imports {
		pkg, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return errors.Wrapf(err, "malformed import %s", imp.Path.Value)
		}
		if !r.AllowedImports[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		sort.Strings(forbidden)
		return errors.Errorf("forbidden imports %v", forbidden)
	}
	return nil
}

// withPackageClause prepends a package clause to sources without one.
func withPackageClause(fset *token.FileSet, src []byte) []byte {
	if _, err := parser.ParseFile(fset, "", src, parser.PackageClauseOnly); err == nil {
		return src
	}
	return append([]byte("package "+scriptPackage+"\n\n"), src...)
}

// renamePackage rewrites the package clause so the script always lives in
// scriptPackage, whatever name its author picked.
func renamePackage(fset *token.FileSet, file *ast.File, src []byte) string {
	if file.Name.Name == scriptPackage {
		return string(src)
	}
	start := fset.Position(file.Name.Pos()).Offset
	end := fset.Position(file.Name.End()).Offset
	return string(src[:start]) + scriptPackage + string(src[end:])
}

// exportedFuncs lists the exported, non-generic top-level functions of file.
func exportedFuncs(file *ast.File) []string {
	var names []string
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || !fn.Name.IsExported() {
			continue
		}
		if fn.Type.TypeParams != nil && len(fn.Type.TypeParams.List) > 0 {
			continue
		}
		names = append(names, fn.Name.Name)
	}
	return names
}
