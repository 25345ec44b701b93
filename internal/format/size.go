// Package format renders byte quantities for display.
package format

import "fmt"

// DefaultSizeSuffix is used when FormatSize is given an empty suffix.
const DefaultSizeSuffix = "B"

const sizeFactor = 1024

// sizePrefixes are binary (JEDEC) magnitude prefixes, not SI ones.
var sizePrefixes = [...]string{"", "K", "M", "G", "T"}

// FormatSize returns a human readable size using 1024-based prefixes, e.g.
// 10293 -> "10.1KB" and 2098234 -> "2.0MB". The value is divided by 1024 while
// it is at least 1024 and a larger prefix exists; anything from 1 TiB upward
// is expressed in T without further division ("1024.0TB" for 1 PiB).
func FormatSize(bytes uint64, suffix string) string {
	if suffix == "" {
		suffix = DefaultSizeSuffix
	}

	value := float64(bytes)
	last := len(sizePrefixes) - 1
	for i, prefix := range sizePrefixes {
		if value < sizeFactor || i == last {
			return fmt.Sprintf("%.1f%s%s", value, prefix, suffix)
		}
		value /= sizeFactor
	}
	panic("unreachable")
}
