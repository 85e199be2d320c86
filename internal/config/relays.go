package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thatsimonsguy/hydro-controller/internal/model"
)

// Relays accepts a space separated string ("1 2"), a single integer, or a list.
type Relays []int

func (r *Relays) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var out Relays
		for _, field := range strings.Fields(node.Value) {
			id, err := strconv.Atoi(field)
			if err != nil {
				return fmt.Errorf("line %d: relay %q is not an integer", node.Line, field)
			}
			out = append(out, id)
		}
		*r = out
		return nil
	case yaml.SequenceNode:
		var ids []int
		if err := node.Decode(&ids); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*r = ids
		return nil
	}
	return fmt.Errorf("line %d: relays must be a string or a list", node.Line)
}

func (r Relays) Set() model.RelaySet {
	ids := make([]model.RelayID, len(r))
	for i, id := range r {
		ids[i] = model.RelayID(id)
	}
	return model.NewRelaySet(ids...)
}
