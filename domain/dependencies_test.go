package domain_test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/reglet-dev/triebridge/"

// TestDomainHasNoExternalDependencies verifies that the domain layer does
// not import the packages built on top of it.
func TestDomainHasNoExternalDependencies(t *testing.T) {
	fset := token.NewFileSet()

	for _, pkg := range []string{"entities", "errors", "ports"} {
		files, err := filepath.Glob(filepath.Join("..", "domain", pkg, "*.go"))
		require.NoError(t, err, "failed to glob %s files", pkg)

		for _, file := range files {
			if strings.HasSuffix(file, "_test.go") {
				continue
			}
			checkFileImports(t, fset, file, pkg)
		}
	}
}

func checkFileImports(t *testing.T, fset *token.FileSet, filename, pkg string) {
	t.Helper()

	f, err := parser.ParseFile(fset, filename, nil, parser.ImportsOnly)
	require.NoError(t, err, "failed to parse %s", filename)

	forbiddenPackages := []string{
		modulePath + "application",
		modulePath + "infrastructure",
		modulePath + "bridge",
		modulePath + "codec",
		modulePath + "ffi",
		modulePath + "host",
		modulePath + "hostfuncs",
		modulePath + "log",
		modulePath + "trie",
	}

	for _, imp := range f.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)

		for _, forbidden := range forbiddenPackages {
			assert.False(t, importPath == forbidden || strings.HasPrefix(importPath, forbidden+"/"),
				"domain/%s package (%s) must not import %s",
				pkg, filepath.Base(filename), importPath)
		}

		// Domain can only import the standard library, other domain
		// packages, and the pointer type of the error channel.
		if strings.HasPrefix(importPath, modulePath) {
			assert.True(t,
				strings.Contains(importPath, "/domain/") || importPath == modulePath+"internal/abi",
				"domain/%s package (%s) imports non-domain package: %s",
				pkg, filepath.Base(filename), importPath)
		} else {
			assert.NotContains(t, importPath, ".", "domain/%s package (%s) imports third-party %s",
				pkg, filepath.Base(filename), importPath)
		}
	}
}

// TestDomainEntitiesPortsErrorsExist verifies that required domain packages exist
func TestDomainEntitiesPortsErrorsExist(t *testing.T) {
	for _, dir := range []string{"entities", "errors", "ports"} {
		files, err := filepath.Glob(filepath.Join("..", "domain", dir, "*.go"))
		require.NoError(t, err, "failed to check %s directory", dir)
		assert.NotEmpty(t, files, "domain/%s should contain Go files", dir)
	}
}
