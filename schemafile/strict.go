package schemafile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DuplicateKeyError reports a mapping key that occurs twice, with the
// position of both occurrences.
type DuplicateKeyError struct {
	Key       string
	FirstLine int
	FirstCol  int
	Line      int
	Col       int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate YAML key %q at %d:%d (first at %d:%d)", e.Key, e.Line, e.Col, e.FirstLine, e.FirstCol)
}

// checkDuplicates walks a node tree and fails on the first repeated key.
func checkDuplicates(n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			if err := checkDuplicates(c); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		first := make(map[string][2]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if pos, dup := first[k.Value]; dup {
				return &DuplicateKeyError{Key: k.Value, FirstLine: pos[0], FirstCol: pos[1], Line: k.Line, Col: k.Column}
			}
			first[k.Value] = [2]int{k.Line, k.Column}
			if err := checkDuplicates(n.Content[i+1]); err != nil {
				return err
			}
		}
	}
	return nil
}
