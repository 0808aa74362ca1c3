// internal/utils/ids.go
package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	idNode     *snowflake.Node
	idNodeOnce sync.Once
	idNodeMu   sync.Mutex
)

// InitIDGenerator binds the snowflake node id of this process. Replicas must
// use distinct node ids.
func InitIDGenerator(nodeID int64) error {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("failed to create snowflake node: %w", err)
	}

	idNodeMu.Lock()
	idNode = node
	idNodeMu.Unlock()
	return nil
}

func node() *snowflake.Node {
	idNodeOnce.Do(func() {
		idNodeMu.Lock()
		defer idNodeMu.Unlock()
		if idNode == nil {
			idNode, _ = snowflake.NewNode(1)
		}
	})

	idNodeMu.Lock()
	defer idNodeMu.Unlock()
	return idNode
}

// NewReferenceID returns "<prefix>-<snowflake>", e.g. REF-1790214569377419264.
func NewReferenceID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, node().Generate().String())
}

// NewInvoiceNumber returns "INV-<year>-<base36 snowflake>".
func NewInvoiceNumber(at time.Time) string {
	return fmt.Sprintf("INV-%d-%s", at.Year(), strings.ToUpper(node().Generate().Base36()))
}
