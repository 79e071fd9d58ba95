package obj

import (
	"strconv"
	"strings"
)

// remapIndex maps a 1-based vertex index after truncating to target
// vertices. Indices outside 1..original are not in the table and are
// returned unchanged. A mapping to 0 (nothing left) also falls back to the
// original index.
func remapIndex(index, original, target int) int {
	if index < 1 || index > original {
		return index
	}
	if index <= target {
		return index
	}
	if target == 0 {
		return index
	}
	return target
}

// leadingIndex returns the part of a face token before the first '/'
func leadingIndex(token string) string {
	if i := strings.IndexByte(token, '/'); i >= 0 {
		return token[:i]
	}
	return token
}

// remapFace rewrites one face line with bare, remapped vertex indices.
// Texture and normal sub-indices are dropped.
func remapFace(line string, lineNo, original, target int, warn func(MalformedReference)) string {
	fields := strings.Fields(line)
	refs := make([]string, 0, len(fields))

	for _, token := range fields[1:] {
		index, err := strconv.Atoi(leadingIndex(token))
		if err != nil {
			if warn != nil {
				warn(MalformedReference{Line: lineNo, Token: token})
			}
			refs = append(refs, token)
			continue
		}
		refs = append(refs, strconv.Itoa(remapIndex(index, original, target)))
	}

	return facePrefix + strings.Join(refs, " ")
}
