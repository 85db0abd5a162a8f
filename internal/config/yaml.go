package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// VolumeList keeps configuration order. It decodes either a mapping of
// name to volume (order of keys is kept) or a sequence of volumes that
// carry their own name.
type VolumeList []Volume

// UnmarshalYAML implements yaml.Unmarshaler
func (l *VolumeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		list := make(VolumeList, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			var v Volume
			if err := value.Content[i+1].Decode(&v); err != nil {
				return err
			}
			v.Name = value.Content[i].Value
			list = append(list, v)
		}
		*l = list
		return nil
	case yaml.SequenceNode:
		var list []Volume
		if err := value.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	default:
		return fmt.Errorf("line %d: volumes must be a mapping or a sequence", value.Line)
	}
}

// MountOptionList is a mount(8) option list. "rw" is never kept: write
// access is the mount default and read-only is only ever added.
type MountOptionList []string

// ParseMountOptions splits a comma separated option string
func ParseMountOptions(s string) MountOptionList {
	var opts MountOptionList
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o == "" || o == "rw" {
			continue
		}
		opts = append(opts, o)
	}
	return opts
}

// UnmarshalYAML implements yaml.Unmarshaler
func (l *MountOptionList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = ParseMountOptions(value.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = ParseMountOptions(strings.Join(items, ","))
		return nil
	default:
		return fmt.Errorf("line %d: mount_opts must be a string or a list", value.Line)
	}
}

// With returns a copy with extra options appended
func (l MountOptionList) With(extra ...string) MountOptionList {
	out := make(MountOptionList, 0, len(l)+len(extra))
	out = append(out, l...)
	for _, o := range extra {
		if o != "" && o != "rw" {
			out = append(out, o)
		}
	}
	return out
}

// String joins the options for mount -o
func (l MountOptionList) String() string {
	return strings.Join(l, ",")
}
