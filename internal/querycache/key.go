package querycache

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key is a hierarchical query key ordered from the most general part
// (domain, entity) to the most specific (ids, filters). Parts are
// compared by their JSON encoding so that structurally equal filters
// produce equal keys
type Key []any

func (k Key) parts() []string {
	output := make([]string, 0, len(k))
	for _, part := range k {
		encoded, err := json.Marshal(part)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%q", fmt.Sprint(part)))
		}
		output = append(output, string(encoded))
	}
	return output
}

// String is the canonical encoding used for equality
func (k Key) String() string {
	return "[" + strings.Join(k.parts(), ",") + "]"
}

func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

// HasPrefix reports whether parent is k itself or one of its ancestors
func (k Key) HasPrefix(parent Key) bool {
	if len(parent) > len(k) {
		return false
	}
	own := k.parts()
	for i, part := range parent.parts() {
		if own[i] != part {
			return false
		}
	}
	return true
}
