package apikit

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Encoder encodes response values to a wire format.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, v any) error
}

// JSON is the default response encoder.
var JSON Encoder = jsonCodec{}

// YAML renders responses as YAML. The value is first encoded as JSON so
// that json tags and MarshalJSON methods decide field names and order.
var YAML Encoder = yamlCodec{}

var encoders = []Encoder{JSON, YAML}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

type yamlCodec struct{}

func (yamlCodec) ContentType() string { return "application/yaml" }

func (yamlCodec) Encode(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// JSON is a subset of YAML, so the document keeps its key order.
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	clearStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// clearStyle drops the flow and quoting styles inherited from JSON input.
func clearStyle(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style = 0
	} else {
		n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// EncodeYAML renders v as a YAML document using its JSON representation.
func EncodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := YAML.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// negotiate picks an encoder from the Accept header value. Empty,
// wildcard or unmatched values fall back to JSON.
func negotiate(accept string) Encoder {
	if accept == "" {
		return JSON
	}

	var (
		best    Encoder
		quality = -1.0
	)
	for part := range strings.SplitSeq(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}

		q := 1.0
		if qs, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(qs, 64); err == nil {
				q = parsed
			}
		}
		if q <= quality {
			continue
		}

		switch mediaType {
		case "*/*", "application/*":
			best, quality = JSON, q
		case "application/x-yaml", "text/yaml":
			best, quality = YAML, q
		default:
			for _, enc := range encoders {
				if enc.ContentType() == mediaType {
					best, quality = enc, q
					break
				}
			}
		}
	}

	if best == nil {
		return JSON
	}
	return best
}
