//go:build !linux

package headless

import (
	"fmt"

	"github.com/richinsley/goshaderflow/scene"
)

func NewHeadless(width, height int) (scene.Window, error) {
	return nil, fmt.Errorf("egl headless rendering is not supported on this platform")
}
