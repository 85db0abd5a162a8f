package volume

import (
	"fmt"
	"strings"

	"github.com/nace/vcmounter/internal/ui"
)

// Check runs one batched filesystem check over the mapped, unmounted
// volumes, or only the named one. Mounted volumes are skipped because
// checking a live filesystem is unsafe; unmapped ones have nothing to check.
func (o *Orchestrator) Check(name string) []error {
	return o.checkStates(o.observe(o.selectTargets(name)))
}

func (o *Orchestrator) checkStates(states []targetState) []error {
	var names, devices []string
	for _, st := range states {
		if st.Mounted {
			o.log.Warning("%s: skipped, still mounted", st.Name())
			continue
		}
		if !st.Mapped {
			continue
		}
		names = append(names, st.Name())
		devices = append(devices, st.VirtualDevice)
	}
	if len(devices) == 0 {
		return nil
	}

	fmt.Fprintf(o.out, "Checking decrypted volumes: %s\n", strings.Join(names, " "))
	ui.Rule(o.out)
	err := o.checker.Check(devices)
	ui.Rule(o.out)

	if err != nil {
		return []error{fmt.Errorf("%s: %w", strings.Join(names, ", "), err)}
	}
	return nil
}
