package engine

import (
	"strings"

	"github.com/nace/vcmounter/internal/system"
)

// Map types
const (
	MapTypeLoop   = "loop"
	MapTypeMapper = "mapper"
)

// Properties is what the engine reports for one mapped volume
type Properties struct {
	Slot          string
	Volume        string
	VirtualDevice string
	MountDir      string
}

// Mapped reports whether the engine named a virtual device
func (p Properties) Mapped() bool {
	return p.VirtualDevice != ""
}

// MapType classifies the virtual device as loop or device-mapper backed
func (p Properties) MapType() string {
	switch {
	case strings.HasPrefix(p.VirtualDevice, "/dev/loop"):
		return MapTypeLoop
	case strings.HasPrefix(p.VirtualDevice, "/dev/mapper/"):
		return MapTypeMapper
	default:
		return ""
	}
}

// ParseProperties parses --volume-properties output. Only the first
// block is used; a device query yields one block. Empty or unrecognized
// output yields zero Properties, meaning not mapped.
func ParseProperties(output string) Properties {
	all := parseAllProperties(output)
	if len(all) == 0 {
		return Properties{}
	}
	return all[0]
}

// parseAllProperties returns one entry per block of properties output
func parseAllProperties(output string) []Properties {
	var props []Properties
	for _, block := range system.ParseKeyValueBlocks(output) {
		p := Properties{
			Slot:          block["slot"],
			Volume:        block["volume"],
			VirtualDevice: block["virtual_device"],
			MountDir:      block["mount_directory"],
		}
		if p.VirtualDevice == "" {
			p.VirtualDevice = block["device"]
		}
		if p == (Properties{}) {
			continue
		}
		props = append(props, p)
	}
	return props
}
