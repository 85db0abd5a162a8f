package host

import (
	"strings"

	"github.com/anatol/devmapper.go"
)

// MapperDir is where device-mapper nodes live
const MapperDir = "/dev/mapper/"

// DeviceMapper answers whether a device-mapper target is still live
type DeviceMapper struct{}

// NewDeviceMapper creates a new device-mapper inspector
func NewDeviceMapper() *DeviceMapper {
	return &DeviceMapper{}
}

// Exists reports whether the kernel knows the mapping behind device, which
// may be given as /dev/mapper/<name> or as a bare name. A stale node left
// behind by udev does not count.
func (d *DeviceMapper) Exists(device string) bool {
	name := strings.TrimPrefix(device, MapperDir)
	if name == "" {
		return false
	}
	_, err := devmapper.InfoByName(name)
	return err == nil
}
