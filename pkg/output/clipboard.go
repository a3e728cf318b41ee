package output

import (
	"github.com/atotto/clipboard"
)

// Clipboard copies packed output to the system clipboard.
type Clipboard struct{}

func NewClipboard() *Clipboard {
	return &Clipboard{}
}

func (c *Clipboard) Copy(text string) error {
	return clipboard.WriteAll(text)
}

// IsAvailable reports whether the platform has a usable clipboard, so
// headless runs can skip the copy without an error.
func (c *Clipboard) IsAvailable() bool {
	return !clipboard.Unsupported
}
