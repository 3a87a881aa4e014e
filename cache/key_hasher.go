package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// hashedKeySerializer keeps keys short by replacing the rendered arguments
// with their xxhash digest. The method name stays readable so keys can be
// grouped by prefix.
type hashedKeySerializer struct {
	prefix string
	inner  defaultKeySerializer
}

// NewHashedKeySerializer returns a KeySerializer producing keys of the form
// prefix::method::<16 hex digits>. An empty prefix is omitted.
func NewHashedKeySerializer(prefix string) KeySerializer {
	return hashedKeySerializer{prefix: prefix}
}

func (s hashedKeySerializer) SerializeKey(method string, args ...any) string {
	key := method
	if s.prefix != "" {
		key = s.prefix + KeySeparator + method
	}

	if len(args) == 0 {
		return key
	}

	digest := xxhash.Sum64String(s.inner.SerializeKey(method, args...))
	return fmt.Sprintf("%s%s%016x", key, KeySeparator, digest)
}
