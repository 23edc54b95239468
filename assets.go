package wolf

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-wolf/pkg/ui"
)

//go:embed assets/controls.html assets/templates/*.html
var embeddedAssets embed.FS

// StockControls returns the markup of the bundled control library.
//
//	<wolf:labeled label="Name"><input value="{name}"></wolf:labeled>
//	<wolf:pill text="{status}" tone="ok" event:select="pick"></wolf:pill>
func StockControls() string {
	data, err := embeddedAssets.ReadFile("assets/controls.html")
	if err != nil {
		return ""
	}
	return string(data)
}

// TemplatesFS exposes the bundled pongo2 templates served to the tpl
// processor, so hosts can reuse or extend them.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets/templates")
	if err != nil {
		return embeddedAssets
	}
	return sub
}

// LoadStockControls defines the bundled controls on e.
func LoadStockControls(e *ui.Engine) error {
	if _, err := e.Read(StockControls()); err != nil {
		return fmt.Errorf("wolf: load stock controls: %w", err)
	}
	return nil
}
