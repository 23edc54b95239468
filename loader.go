package wolf

import (
	internalLoader "github.com/goliatone/go-wolf/internal/loader"
	"github.com/goliatone/go-wolf/pkg/resource"
	"github.com/goliatone/go-wolf/pkg/template"
)

// NewLoader constructs the file, fs.FS and HTTP resource loader while keeping
// the concrete type hidden from consumers.
func NewLoader(options resource.Options) (resource.Loader, error) {
	return internalLoader.New(options)
}

// NewReader constructs a template reader over schema. A nil schema accepts
// plain HTML only.
func NewReader(schema template.Schema, options template.Options) *template.Reader {
	return template.NewReader(schema, options)
}
