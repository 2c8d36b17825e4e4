package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Contract is the JSON Schema a generated record must satisfy.
type Contract struct {
	name   string
	schema *jsonschema.Schema
}

// NewContract compiles a Draft 2020-12 schema.
func NewContract(name, schema string) (*Contract, error) {
	url := "mem://contracts/" + name + ".json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Contract{name: name, schema: compiled}, nil
}

// MustContract is NewContract for package-level schemas.
func MustContract(name, schema string) *Contract {
	c, err := NewContract(name, schema)
	if err != nil {
		panic(err)
	}
	return c
}

// Name identifies the contract in errors and logs.
func (c *Contract) Name() string {
	if c == nil {
		return "unnamed"
	}
	return c.name
}

// Decode validates block against the schema and unmarshals it into out.
func (c *Contract) Decode(block string, out any) error {
	var doc any
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return fmt.Errorf("%s: parse: %w", c.Name(), err)
	}
	if c != nil && c.schema != nil {
		if err := c.schema.Validate(doc); err != nil {
			return fmt.Errorf("%s: schema: %w", c.Name(), err)
		}
	}
	if err := json.Unmarshal([]byte(block), out); err != nil {
		return fmt.Errorf("%s: decode: %w", c.Name(), err)
	}
	return nil
}
