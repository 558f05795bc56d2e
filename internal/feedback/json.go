package feedback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// looksLikeJSON reports whether data is a JSON object or array document.
func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// decodeJSON reads a JSON document into the same node tree yaml.Unmarshal
// produces, keeping member order. JSON escapes that YAML lacks, such as \/,
// are handled by encoding/json.
func decodeJSON(data []byte) (*yaml.Node, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := readJSONValue(dec, data)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after the top-level value")
		}
		return nil, err
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Line: 1, Content: []*yaml.Node{root}}, nil
}

func readJSONValue(dec *json.Decoder, data []byte) (*yaml.Node, error) {
	line := lineAt(data, dec.InputOffset())
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: line}
			for dec.More() {
				keyLine := lineAt(data, dec.InputOffset())
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("line %d: object key is not a string", keyLine)
				}
				value, err := readJSONValue(dec, data)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, scalar("!!str", key, keyLine), value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Line: line}
			for dec.More() {
				value, err := readJSONValue(dec, data)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("line %d: unexpected %q", line, v)
	case string:
		return scalar("!!str", v, line), nil
	case json.Number:
		if strings.ContainsAny(v.String(), ".eE") {
			return scalar("!!float", v.String(), line), nil
		}
		return scalar("!!int", v.String(), line), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(v), line), nil
	case nil:
		return scalar("!!null", "null", line), nil
	}
	return nil, fmt.Errorf("line %d: unexpected token %v", line, tok)
}

func scalar(tag, value string, line int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value, Line: line}
}

// lineAt returns the 1-based line of the next token at or after offset.
func lineAt(data []byte, offset int64) int {
	i := int(offset)
	for i < len(data) && strings.IndexByte(" \t\r\n,:", data[i]) >= 0 {
		i++
	}
	return bytes.Count(data[:i], []byte("\n")) + 1
}
