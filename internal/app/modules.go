package app

import (
	"github.com/vk/typedrpc/internal/registry"
	"github.com/vk/typedrpc/modules/arith"
	"github.com/vk/typedrpc/modules/text"
)

// coreModules is the default set of procedure bundles registered when the
// caller does not supply its own.
var coreModules = []registry.Module{
	&arith.Module{},
	&text.Module{},
}
