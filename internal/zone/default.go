package zone

import _ "embed"

//go:embed layout.yaml
var defaultLayout []byte

// LoadDefaultLayout registers the layout compiled into the binary.
func (ix *Index) LoadDefaultLayout() error {
	return ix.ParseLayout(defaultLayout)
}
