package testkit

import (
	"strings"

	"fabr/internal/source"
)

// Src joins lines into file content with a trailing newline.
func Src(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

// Tree builds an in-memory reader from path/content pairs.
func Tree(pairs ...string) source.MapReader {
	if len(pairs)%2 != 0 {
		panic("testkit.Tree: odd number of arguments")
	}
	r := make(source.MapReader, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		r[pairs[i]] = []byte(pairs[i+1])
	}
	return r
}
