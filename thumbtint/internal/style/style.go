// Package style holds the stylesheet injected into re-skinned pages.
package style

import _ "embed"

// ID is the element id used when the sheet is inserted into <head>.
const ID = "thumbtint-style"

//go:embed tint.css
var CSS string
