// Package dktesting runs store tests against throwaway Docker containers.
package dktesting

import (
	"testing"

	"github.com/dhui/dktest"
)

// ContainerSpec holds Docker testing setup specifications
type ContainerSpec struct {
	ImageName string
	Options   dktest.Options
}

// ParallelTest runs testFunc against a container for every spec in parallel.
// In short mode only the first spec runs.
func ParallelTest(t *testing.T, specs []ContainerSpec,
	testFunc func(*testing.T, dktest.ContainerInfo)) {

	for i, spec := range specs {
		if i > 0 && testing.Short() {
			t.Logf("Skipping %v in short mode", spec.ImageName)
			continue
		}
		t.Run(spec.ImageName, func(t *testing.T) {
			t.Parallel()
			dktest.Run(t, spec.ImageName, spec.Options, testFunc)
		})
	}
}
