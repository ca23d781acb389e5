package artifacts

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Artifact paths are derived from (item, kind, stamp). The stamp is chosen
// once when remote results are first recorded and persisted with the job, so
// a retried materialization writes to the same path instead of orphaning the
// previous attempt.

func ModelPath(itemID uuid.UUID, stamp int64) string {
	return fmt.Sprintf("items/%s/%s-%d.glb", itemID, itemID, stamp)
}

func ImagePath(itemID uuid.UUID, stamp int64, name string) string {
	return fmt.Sprintf("items/%s/images/processed-%d-%s", itemID, stamp, sanitizeName(name))
}

// NameFromRef extracts a usable file name from a remote download url.
func NameFromRef(ref string) string {
	name := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		name = u.Path
	}
	name = path.Base(name)
	if name == "." || name == "/" || name == "" {
		return "result.png"
	}
	return name
}

func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
