package mcp

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Doc comments of exported types must open with the type name so that
// section labels never leak into godoc.
func TestTypeDocsNameTheirType(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)

	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.ParseComments)
		require.NoError(t, err)
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				if !ts.Name.IsExported() {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(gd.Specs) == 1 {
					doc = gd.Doc
				}
				if !assert.NotNil(t, doc, "%s: %s has no doc comment", name, ts.Name.Name) {
					continue
				}
				assert.True(t, strings.HasPrefix(doc.Text(), ts.Name.Name+" "),
					"%s: doc of %s starts with %q", name, ts.Name.Name, strings.SplitN(doc.Text(), "\n", 2)[0])
			}
		}
	}
}
