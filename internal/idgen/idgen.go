// Package idgen assigns globally unique, time-ordered 64-bit identifiers.
//
// The same id is used as the relational primary key and the vector-collection
// primary key, so it must never repeat within a running process. Snowflake ids
// are coarse clock-ordered: ids generated later compare >= ids generated
// earlier, with no contiguity guarantee.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator produces strictly increasing int64 ids. Safe for concurrent use.
type Generator struct {
	node *snowflake.Node
}

// New creates a Generator for the given node id (0..1023).
func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}

	return &Generator{node: node}, nil
}

// Next returns the next id. It cannot fail; the generator has no external dependency.
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}
