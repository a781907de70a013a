package main

import "runtime/debug"

// Version is set by the linker, falling back to the module version.
var Version = "dev"

func init() {
	if info, available := debug.ReadBuildInfo(); available {
		if Version == "dev" && info.Main.Version != "" {
			Version = info.Main.Version
		}
	}
}
