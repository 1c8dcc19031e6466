package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cloudx-io/opendsp/dspapi"
	"github.com/cloudx-io/opendsp/validation"
)

const (
	exitValid   = 0
	exitInvalid = 1
	exitError   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

const (
	inputRequest  = "request"
	inputResponse = "response"
)

type validationOutput struct {
	InputType string            `json:"input_type"`
	Valid     bool              `json:"valid"`
	Local     validation.Report `json:"local"`
	Schema    validation.Report `json:"schema"`
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("request-validator", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var input string
	flags.StringVar(&input, "input", "", "Bid request or bid response (file path or inline JSON)")
	flags.StringVar(&input, "bid-request", "", "Alias of --input")
	var (
		inputType    = flags.String("input-type", inputRequest, "What the input holds: request or response")
		contentType  = flags.String("content-type", dspapi.ContentTypeJSON, "Encoding of the input: application/json or application/cbor")
		schemaPath   = flags.String("schema", "", "JSON schema to validate against instead of the built-in OpenRTB schema")
		outputFormat = flags.String("format", "text", "Output format: text or json")
		help         = flags.Bool("help", false, "Show usage information")
	)
	flags.Usage = func() { showUsage(stderr) }

	if err := flags.Parse(args); err != nil {
		return exitError
	}

	if *help {
		showUsage(stdout)
		return exitValid
	}

	if *inputType != inputRequest && *inputType != inputResponse {
		fmt.Fprintf(stderr, "Error: --input-type must be %s or %s, got %q\n", inputRequest, inputResponse, *inputType)
		return exitError
	}

	if input == "" {
		showUsage(stderr)
		fmt.Fprintf(stderr, "\nError: --input is required\n")
		return exitError
	}

	payload, err := readInput(input)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading input: %v\n", err)
		return exitError
	}

	validator, err := loadValidator(*inputType, *schemaPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading schema: %v\n", err)
		return exitError
	}

	output := validationOutput{InputType: *inputType}
	if *inputType == inputResponse {
		resp, err := dspapi.DecodeBidResponse(*contentType, payload)
		if err != nil {
			fmt.Fprintf(stderr, "Error decoding bid response: %v\n", err)
			return exitError
		}
		output.Local = validation.ValidateBidResponse(resp)
		if *contentType == dspapi.ContentTypeJSON {
			output.Schema = validator.ValidateJSON(payload)
		} else {
			output.Schema = validator.ValidateResponse(resp)
		}
	} else {
		req, err := dspapi.DecodeBidRequest(*contentType, payload)
		if err != nil {
			fmt.Fprintf(stderr, "Error decoding bid request: %v\n", err)
			return exitError
		}
		output.Local = validation.ValidateBidRequest(req)
		if *contentType == dspapi.ContentTypeJSON {
			output.Schema = validator.ValidateJSON(payload)
		} else {
			output.Schema = validator.Validate(req)
		}
	}
	output.Valid = output.Local.IsValid() && output.Schema.IsValid()

	if *outputFormat == "json" {
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "Error marshaling JSON: %v\n", err)
			return exitError
		}
		fmt.Fprintln(stdout, string(data))
	} else {
		outputText(stdout, output)
	}

	if !output.Valid {
		return exitInvalid
	}
	return exitValid
}

// readInput treats input as a file path first and as inline content otherwise.
func readInput(input string) ([]byte, error) {
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	return []byte(input), nil
}

func loadValidator(inputType, schemaPath string) (*validation.SchemaValidator, error) {
	if schemaPath == "" {
		if inputType == inputResponse {
			return validation.NewResponseSchemaValidator()
		}
		return validation.NewSchemaValidator()
	}
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, err
	}
	if inputType == inputResponse {
		return validation.NewResponseSchemaValidatorFromBytes(schema)
	}
	return validation.NewSchemaValidatorFromBytes(schema)
}

func outputText(w io.Writer, output validationOutput) {
	fmt.Fprintln(w, "OpenRTB Validator")
	fmt.Fprintln(w, "=============================")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Input: bid %s\n", output.InputType)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Local Checks Valid:      %v\n", output.Local.IsValid())
	fmt.Fprintf(w, "  Schema Valid:            %v\n", output.Schema.IsValid())

	if !output.Valid {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Details:")
		for _, diagnostic := range output.Local.Diagnostics {
			fmt.Fprintf(w, "  - %s\n", diagnostic)
		}
		for _, diagnostic := range output.Schema.Diagnostics {
			fmt.Fprintf(w, "  - schema: %s\n", diagnostic)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=============================")
	if output.Valid {
		fmt.Fprintln(w, "VALIDATION: ✓ PASSED")
	} else {
		fmt.Fprintln(w, "VALIDATION: ✗ FAILED")
	}
}

func showUsage(w io.Writer) {
	fmt.Fprintln(w, "OpenRTB Validator")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Runs the checks the bid endpoint applies before a request is eligible for bidding,")
	fmt.Fprintln(w, "or the checks an OpenRTB 2.x bid response must pass.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  request-validator --input <file|json> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Optional Flags:")
	fmt.Fprintln(w, "  --input-type <request|response>   What the input holds (default: request)")
	fmt.Fprintln(w, "  --bid-request <file|json>         Alias of --input")
	fmt.Fprintln(w, "  --content-type <type>             application/json (default) or application/cbor")
	fmt.Fprintln(w, "  --schema <path>                   Custom JSON schema")
	fmt.Fprintln(w, "  --format <text|json>              Output format (default: text)")
	fmt.Fprintln(w, "  --help                            Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  request-validator --input request.json")
	fmt.Fprintln(w, "  request-validator --input response.json --input-type response")
	fmt.Fprintln(w, "  request-validator --input '{\"id\":\"r1\",\"imp\":[{\"id\":\"1\"}],\"site\":{}}' --format json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit Codes:")
	fmt.Fprintln(w, "  0 - Validation passed")
	fmt.Fprintln(w, "  1 - Validation failed")
	fmt.Fprintln(w, "  2 - Invalid input or runtime error")
}
