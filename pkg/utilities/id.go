package utilities

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewRequestID generates a sortable request identifier used for tracing.
func NewRequestID() string {
	return ksuid.New().String()
}

// NewRunnerID generates a snowflake ID identifying one job runner instance,
// using the node ID from SNOWFLAKE_NODE (default 1). If node setup fails it
// falls back to a KSUID string so a unique ID is still returned.
func NewRunnerID() string {
	nodeID := int64(1)
	if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			nodeID = n
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return NewRequestID()
	}
	return node.Generate().String()
}
