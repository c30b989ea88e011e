package app

import (
	"github.com/specialistvlad/cgraph/internal/registry"
	"github.com/specialistvlad/cgraph/modules/basic"
	"github.com/specialistvlad/cgraph/modules/linalg"
)

// coreModules is the definitive list of all kernel modules that are compiled
// into the binary.
var coreModules = []registry.Module{
	&basic.Module{},
	&linalg.Module{},
}
