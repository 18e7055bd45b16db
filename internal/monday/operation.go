// Package monday is the transport for the work-management platform's
// GraphQL API. Callers construct a Client explicitly and pass it where it is
// needed; there is no package-level SDK instance. Values always travel as
// GraphQL variables, never interpolated into the document text.
package monday

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Operation is a parsed, single-operation GraphQL document.
type Operation struct {
	// Name is the operation name, used for logging and metric labels.
	Name string

	// Kind is "query" or "mutation".
	Kind string

	document  string
	variables []variable
}

type variable struct {
	name    string
	nonNull bool
}

// MustParse parses a GraphQL document containing exactly one named
// operation. It panics on malformed input; documents are package constants.
func MustParse(document string) Operation {
	op, err := Parse(document)
	if err != nil {
		panic(err)
	}
	return op
}

// Parse parses a GraphQL document containing exactly one named operation.
func Parse(document string) (Operation, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "operation", Input: document})
	if err != nil {
		return Operation{}, fmt.Errorf("parsing graphql document: %w", err)
	}
	if len(doc.Operations) != 1 {
		return Operation{}, fmt.Errorf("graphql document must hold exactly one operation, found %d", len(doc.Operations))
	}

	def := doc.Operations[0]
	if def.Name == "" {
		return Operation{}, fmt.Errorf("graphql operation must be named")
	}

	op := Operation{
		Name:     def.Name,
		Kind:     string(def.Operation),
		document: document,
	}
	for _, v := range def.VariableDefinitions {
		op.variables = append(op.variables, variable{
			name:    v.Variable,
			nonNull: v.Type != nil && v.Type.NonNull && v.DefaultValue == nil,
		})
	}
	return op, nil
}

// Document returns the raw GraphQL text sent as "query".
func (o Operation) Document() string {
	return o.document
}

// checkVariables ensures every required variable is supplied and no
// undeclared variable is sent.
func (o Operation) checkVariables(vars map[string]any) error {
	declared := make(map[string]bool, len(o.variables))
	for _, v := range o.variables {
		declared[v.name] = true
		if !v.nonNull {
			continue
		}
		if val, ok := vars[v.name]; !ok || val == nil {
			return fmt.Errorf("%s: missing required variable $%s", o.Name, v.name)
		}
	}
	for name := range vars {
		if !declared[name] {
			return fmt.Errorf("%s: undeclared variable $%s", o.Name, name)
		}
	}
	return nil
}
