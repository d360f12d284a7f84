// Package registry links in every built-in device class.
package registry

import (
	_ "github.com/Alia5/xrinput/device/remote3dof" // Register the 3dof remote class
	_ "github.com/Alia5/xrinput/device/touch"      // Register the touch controller classes
)
