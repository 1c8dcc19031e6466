package dspapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// DecodeBidRequest decodes body according to contentType.
func DecodeBidRequest(contentType string, body []byte) (*openrtb2.BidRequest, error) {
	var req openrtb2.BidRequest
	switch mediaType(contentType) {
	case ContentTypeJSON:
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode json bid request: %w", err)
		}
	case ContentTypeCBOR:
		if err := cbor.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode cbor bid request: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
	return &req, nil
}

// DecodeBidResponse decodes body according to contentType.
func DecodeBidResponse(contentType string, body []byte) (*openrtb2.BidResponse, error) {
	var resp openrtb2.BidResponse
	switch mediaType(contentType) {
	case ContentTypeJSON:
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode json bid response: %w", err)
		}
	case ContentTypeCBOR:
		if err := cbor.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode cbor bid response: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
	return &resp, nil
}

// EncodeBidResponse encodes resp according to contentType.
func EncodeBidResponse(contentType string, resp *openrtb2.BidResponse) ([]byte, error) {
	switch mediaType(contentType) {
	case ContentTypeJSON:
		return json.Marshal(resp)
	case ContentTypeCBOR:
		return cbor.Marshal(resp)
	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
}

func mediaType(contentType string) string {
	return strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
}
