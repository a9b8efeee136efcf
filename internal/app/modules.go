package app

import (
	"github.com/vk/logicrouter/internal/registry"
	"github.com/vk/logicrouter/modules/echo"
	"github.com/vk/logicrouter/modules/print"
)

// builtinModules lists every module compiled into the logicrouter binary.
// Only the ones named in Config.Builtins are registered.
var builtinModules = map[string]registry.Module{
	echo.Name:  &echo.Module{},
	print.Name: &print.Module{},
}

func selectModules(names []string) []registry.Module {
	mods := make([]registry.Module, 0, len(names))
	for _, name := range names {
		if mod, ok := builtinModules[name]; ok {
			mods = append(mods, mod)
		}
	}
	return mods
}
