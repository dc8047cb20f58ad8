package todoapi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const todoSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "completed"],
  "properties": {
    "id": {"type": "integer"},
    "title": {"type": "string"},
    "description": {"type": ["string", "null"]},
    "completed": {"type": "boolean"}
  }
}`

const todoListSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {"$ref": "todo.json"}
}`

const (
	todoSchemaURL     = "https://teedee.local/schema/todo.json"
	todoListSchemaURL = "https://teedee.local/schema/todos.json"
)

type schemas struct {
	todo *jsonschema.Schema
	list *jsonschema.Schema
}

var (
	schemaOnce sync.Once
	schemaSet  schemas
	schemaErr  error
)

func loadSchemas() (schemas, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(todoSchemaURL, strings.NewReader(todoSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add todo schema: %w", err)
			return
		}
		if err := compiler.AddResource(todoListSchemaURL, strings.NewReader(todoListSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add todo list schema: %w", err)
			return
		}
		todo, err := compiler.Compile(todoSchemaURL)
		if err != nil {
			schemaErr = fmt.Errorf("compile todo schema: %w", err)
			return
		}
		list, err := compiler.Compile(todoListSchemaURL)
		if err != nil {
			schemaErr = fmt.Errorf("compile todo list schema: %w", err)
			return
		}
		schemaSet = schemas{todo: todo, list: list}
	})
	return schemaSet, schemaErr
}

// checkShape validates a generic JSON document against the Todo or Todo list schema.
func checkShape(doc any, list bool) error {
	set, err := loadSchemas()
	if err != nil {
		return err
	}
	schema := set.todo
	if list {
		schema = set.list
	}
	if err := schema.Validate(doc); err != nil {
		return summarizeSchemaError(err)
	}
	return nil
}

// summarizeSchemaError flattens a validation tree into its leaf messages.
func summarizeSchemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	var leaves []string
	collectLeaves(ve, &leaves)
	if len(leaves) == 0 {
		return fmt.Errorf("%s", ve.Message)
	}
	return fmt.Errorf("%s", strings.Join(leaves, "; "))
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, fmt.Sprintf("%s: %s", loc, ve.Message))
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}
