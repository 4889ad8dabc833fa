package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateRegistration means a module record was inserted twice for
	// the same ID. Ingestion visits each file once, so this is a bug.
	ErrDuplicateRegistration = errors.New("module registered twice")
	// ErrDanglingDependency marks an import of a module with no source file.
	ErrDanglingDependency = errors.New("module not found")
	// ErrUnsupportedLocalImport marks the relative `import .foo` form.
	ErrUnsupportedLocalImport = errors.New("local module syntax not supported")
	// ErrCyclicDependency means a module can reach itself through imports.
	ErrCyclicDependency = errors.New("cycle detected")
)

// DuplicateRegistrationError is returned by Store.Insert.
type DuplicateRegistrationError struct {
	ID ID
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("module for id %d registered twice", int(e.ID))
}

func (e *DuplicateRegistrationError) Unwrap() error { return ErrDuplicateRegistration }

// Dangling is an import whose target has no module record.
type Dangling struct {
	Module string // importing module
	Import string // missing module
}

func (d Dangling) String() string {
	return fmt.Sprintf("module %s (in %s) not found", d.Import, d.Module)
}

// Err wraps the finding as an error for callers that want one.
func (d Dangling) Err() error {
	return fmt.Errorf("%s: %w", d, ErrDanglingDependency)
}

// LocalImport is one use of the relative import form.
type LocalImport struct {
	Module string
	Import string
}

func (l LocalImport) String() string {
	return fmt.Sprintf("local module syntax used in %s for %s", l.Module, l.Import)
}

// LocalImportError lists every local import found in the graph.
type LocalImportError struct {
	Imports []LocalImport
}

func (e *LocalImportError) Error() string {
	if len(e.Imports) == 1 {
		return fmt.Sprintf("%s: %s", ErrUnsupportedLocalImport, e.Imports[0])
	}
	return fmt.Sprintf("%s: %d imports, first: %s", ErrUnsupportedLocalImport, len(e.Imports), e.Imports[0])
}

func (e *LocalImportError) Unwrap() error { return ErrUnsupportedLocalImport }

// CycleError reports the import path that closes a cycle. Path starts and
// ends with the same module.
type CycleError struct {
	Path  []ID
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Names, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }
