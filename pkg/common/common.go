package common

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cast"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var (
	snowNode *snowflake.Node
	snowOnce sync.Once
)

// SetNodeID configures the snowflake node before the first id is issued.
func SetNodeID(id int64) {
	snowOnce.Do(func() {
		node, err := snowflake.NewNode(id % 1024)
		if err != nil {
			panic(err)
		}
		snowNode = node
	})
}

// UUIDint64 returns a time ordered unique int64 id.
func UUIDint64() int64 {
	SetNodeID(1)
	return snowNode.Generate().Int64()
}

// IsEmptyOrNA reports whether s carries no usable value.
func IsEmptyOrNA(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "N/A")
}

// IfEmptyStr returns def when src is empty.
func IfEmptyStr(src, def string) string {
	if strings.TrimSpace(src) == "" {
		return def
	}
	return src
}

// ParseInt64 accepts numeric strings, floats and json numbers.
func ParseInt64(v interface{}) (int64, error) {
	return cast.ToInt64E(v)
}
