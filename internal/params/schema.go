package params

import (
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	taskConfigSchema = "schemas/task_config.schema.json"
	algoParamsSchema = "schemas/algo_params.schema.json"
)

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

// compile parses the embedded schemas exactly once.
func compile() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[string]*jsonschema.Schema, 2)
		for _, name := range []string{taskConfigSchema, algoParamsSchema} {
			f, err := schemaFS.Open(name)
			if err != nil {
				compileErr = fmt.Errorf("failed to open embedded schema %s: %w", name, err)
				return
			}

			c := jsonschema.NewCompiler()
			if err := c.AddResource(name, f); err != nil {
				compileErr = fmt.Errorf("failed to add schema resource %s: %w", name, err)
				return
			}
			schema, err := c.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("failed to compile schema %s: %w", name, err)
				return
			}
			compiled[name] = schema
		}
	})
	return compiled, compileErr
}

// validateFile loads a JSON document and validates it against the named
// embedded schema.
func validateFile(path, schemaName string) error {
	schemas, err := compile()
	if err != nil {
		return err
	}

	doc, err := LoadJSON(path)
	if err != nil {
		return err
	}

	if err := schemas[schemaName].Validate(map[string]any(doc)); err != nil {
		return fmt.Errorf("%s failed validation: %w", path, err)
	}
	return nil
}

// ValidateTaskConfig checks a task configuration file against the embedded
// task config schema.
func ValidateTaskConfig(path string) error {
	return validateFile(path, taskConfigSchema)
}

// ValidateAlgoParams checks an algorithm parameters file against the
// embedded parameters schema. Override files use the same schema: an
// override is any subset of the parameter surface, and the schema requires
// no keys.
func ValidateAlgoParams(path string) error {
	return validateFile(path, algoParamsSchema)
}
