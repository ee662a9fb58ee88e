package text

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("qmsrag:document"))

// DocumentID derives a stable document identifier from its URI and, when a
// file yields several documents, a part key.
func DocumentID(uri string, part ...string) string {
	name := uri
	if len(part) > 0 {
		name += "#" + strings.Join(part, "/")
	}
	return uuid.NewSHA1(documentNamespace, []byte(name)).String()
}

// TitleFromURI turns a file path into a readable title.
func TitleFromURI(uri string) string {
	filename := filepath.Base(uri)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// CopyMetadata creates a shallow copy of metadata, never returning nil.
func CopyMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+4)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
