// Package viewer prepares a converted document for display and download.
package viewer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// DefaultStem names downloads when the source file name is unknown.
const DefaultStem = "json_data"

// Supported download formats.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatMsgPack = "msgpack"
)

// ErrUnknownFormat is returned by Encode for unsupported formats.
var ErrUnknownFormat = errors.New("unknown download format")

// View is the payload handed to the page's code viewer.
type View struct {
	Src  string `json:"src"`
	Name string `json:"name"`
}

// Encoded is a document rendered in a download format.
type Encoded struct {
	Data        []byte
	ContentType string
	Extension   string
}

// NewView builds the viewer payload for a document produced from fileName.
func NewView(doc json.RawMessage, fileName string) (View, error) {
	src, err := Pretty(doc)
	if err != nil {
		return View{}, err
	}
	return View{Src: src, Name: FilenameStem(fileName)}, nil
}

// Pretty returns doc indented with two spaces.
func Pretty(doc json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return "", fmt.Errorf("formatting document: %w", err)
	}
	return buf.String(), nil
}

// FilenameStem returns the part of name before the first ".".
func FilenameStem(name string) string {
	stem, _, _ := strings.Cut(name, ".")
	return stem
}

// DownloadName returns "<stem>.<ext>", falling back to DefaultStem.
func DownloadName(stem, ext string) string {
	if stem == "" {
		stem = DefaultStem
	}
	return stem + "." + ext
}

// Encode renders doc as json, yaml or msgpack. An empty format means json.
func Encode(doc json.RawMessage, format string) (*Encoded, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		src, err := Pretty(doc)
		if err != nil {
			return nil, err
		}
		return &Encoded{Data: []byte(src), ContentType: "application/json", Extension: "json"}, nil

	case FormatYAML, "yml":
		value, err := decode(doc)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		return &Encoded{Data: buf.Bytes(), ContentType: "application/yaml", Extension: "yaml"}, nil

	case FormatMsgPack:
		value, err := decode(doc)
		if err != nil {
			return nil, err
		}
		data, err := msgpack.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding msgpack: %w", err)
		}
		return &Encoded{Data: data, ContentType: "application/msgpack", Extension: "msgpack"}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// decode keeps numbers as written so large integers survive re-encoding.
func decode(doc json.RawMessage) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return normalizeNumbers(value), nil
}

func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	case []interface{}:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}
