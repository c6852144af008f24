package summarizing

import (
	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// summarySchemaJSON is the canonical summary contract. Core identifying keys
// are required; the rest are type-checked when the provider supplies them.
//
//go:embed summary_schema.json
var summarySchemaJSON string

var summarySchema = jsonschema.MustCompileString("summary_schema.json", summarySchemaJSON)
