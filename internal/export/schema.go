package export

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed result-schema.json
var resultSchema []byte

// Issue is one schema violation found in a result document
type Issue struct {
	Field       string
	Description string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Description)
}

// ValidateDocument checks raw JSON against the embedded result schema. It
// returns the violations found; an empty list means the document conforms.
// The error return covers malformed input, not schema violations.
func ValidateDocument(data []byte) ([]Issue, error) {
	schemaLoader := gojsonschema.NewBytesLoader(resultSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	issues := make([]Issue, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		issues = append(issues, Issue{Field: verr.Field(), Description: verr.Description()})
	}
	return issues, nil
}

// ValidateFile reads a result file (plain or compressed) and checks its
// JSON against the embedded schema. The document is validated as written,
// not after a round trip through the Go types.
func ValidateFile(path string) ([]Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if strings.HasSuffix(path, CompressedExt) {
		data, err = Decompress(data)
		if err != nil {
			return nil, err
		}
	}
	return ValidateDocument(data)
}
