package live

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// FunctionDeclaration describes one function the model may call during
// the session. Declarations are carried in the setup message.
type FunctionDeclaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// DeclareFunction builds a declaration whose parameter schema is
// derived from the Args struct type.
func DeclareFunction[Args any](name, description string) (FunctionDeclaration, error) {
	schema, err := jsonschema.For[Args](nil)
	if err != nil {
		return FunctionDeclaration{}, err
	}
	return FunctionDeclaration{
		Name:        name,
		Description: description,
		Parameters:  schema,
	}, nil
}

// MustDeclareFunction is DeclareFunction panicking on schema errors.
func MustDeclareFunction[Args any](name, description string) FunctionDeclaration {
	decl, err := DeclareFunction[Args](name, description)
	if err != nil {
		panic(err)
	}
	return decl
}

// FunctionResponse is the client's answer to a ToolCallEvent.
type FunctionResponse struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Response any    `json:"response"`
}
