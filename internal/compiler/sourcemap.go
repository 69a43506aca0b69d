package compiler

import (
	"encoding/json"
	"fmt"
)

// RewriteSourceMap points the first source of a v3 source map at
// sourceFileName and sets its sourceRoot. The first source is only touched
// when the map carries mappings; empty names and roots are left alone.
// Unknown fields are preserved.
func RewriteSourceMap(raw []byte, sourceFileName, sourceRoot string) ([]byte, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("invalid source map: %w", err)
	}

	if sourceFileName != "" && hasMappings(m["mappings"]) {
		var sources []string
		if err := json.Unmarshal(m["sources"], &sources); err == nil && len(sources) > 0 {
			sources[0] = sourceFileName
			b, err := json.Marshal(sources)
			if err != nil {
				return nil, err
			}
			m["sources"] = b
		}
	}

	if sourceRoot != "" {
		b, err := json.Marshal(sourceRoot)
		if err != nil {
			return nil, err
		}
		m["sourceRoot"] = b
	}

	return json.Marshal(m)
}

// AppendSourceMappingURL adds the trailing comment linking code to its map.
func AppendSourceMappingURL(code []byte, mapFile string) []byte {
	out := make([]byte, 0, len(code)+len(mapFile)+24)
	out = append(out, code...)
	out = append(out, "\n//# sourceMappingURL="...)
	return append(out, mapFile...)
}

func hasMappings(raw json.RawMessage) bool {
	var mappings string
	if err := json.Unmarshal(raw, &mappings); err != nil {
		return false
	}
	return mappings != ""
}
