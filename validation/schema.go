package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed schemas/bid-request.json
	bidRequestSchema []byte

	//go:embed schemas/bid-response.json
	bidResponseSchema []byte
)

// SchemaValidator checks OpenRTB payloads against a JSON schema. It is safe for
// concurrent use.
type SchemaValidator struct {
	schema  *gojsonschema.Schema
	subject string
}

// NewSchemaValidator compiles the embedded bid request schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	return NewSchemaValidatorFromBytes(bidRequestSchema)
}

// NewSchemaValidatorFromBytes compiles a caller-supplied bid request schema.
func NewSchemaValidatorFromBytes(schema []byte) (*SchemaValidator, error) {
	return newSchemaValidator(schema, "bid request")
}

// NewResponseSchemaValidator compiles the embedded bid response schema.
func NewResponseSchemaValidator() (*SchemaValidator, error) {
	return NewResponseSchemaValidatorFromBytes(bidResponseSchema)
}

// NewResponseSchemaValidatorFromBytes compiles a caller-supplied bid response schema.
func NewResponseSchemaValidatorFromBytes(schema []byte) (*SchemaValidator, error) {
	return newSchemaValidator(schema, "bid response")
}

func newSchemaValidator(schema []byte, subject string) (*SchemaValidator, error) {
	loaded, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s schema: %w", subject, err)
	}
	return &SchemaValidator{schema: loaded, subject: subject}, nil
}

// Validate checks the JSON form of req.
func (v *SchemaValidator) Validate(req *openrtb2.BidRequest) Report {
	return v.validateValue(req)
}

// ValidateResponse checks the JSON form of resp.
func (v *SchemaValidator) ValidateResponse(resp *openrtb2.BidResponse) Report {
	return v.validateValue(resp)
}

func (v *SchemaValidator) validateValue(value any) Report {
	payload, err := json.Marshal(value)
	if err != nil {
		return Report{Diagnostics: []string{fmt.Sprintf("%s cannot be encoded: %v", v.subject, err)}}
	}
	return v.ValidateJSON(payload)
}

// ValidateJSON checks a raw JSON payload.
func (v *SchemaValidator) ValidateJSON(payload []byte) Report {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return Report{Diagnostics: []string{fmt.Sprintf("%s is not valid json: %v", v.subject, err)}}
	}

	var report Report
	for _, resultErr := range result.Errors() {
		report.Diagnostics = append(report.Diagnostics, resultErr.String())
	}
	return report
}
