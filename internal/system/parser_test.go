package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKeyValueBlocks(t *testing.T) {
	out := `Slot: 1
Volume: /run/shm/vc-mounter/usb-disk
Virtual Device: /dev/mapper/veracrypt1
Mount Directory: /mnt/data

Slot: 2
Volume: /dev/sdc1
junk line without separator
Virtual Device: /dev/loop3
`
	blocks := ParseKeyValueBlocks(out)
	assert.Len(t, blocks, 2)
	assert.Equal(t, "/dev/mapper/veracrypt1", blocks[0]["virtual_device"])
	assert.Equal(t, "/mnt/data", blocks[0]["mount_directory"])
	assert.Equal(t, "/dev/loop3", blocks[1]["virtual_device"])
	assert.NotContains(t, blocks[1], "mount_directory")
}

func TestParseKeyValueBlocks_Empty(t *testing.T) {
	assert.Empty(t, ParseKeyValueBlocks(""))
	assert.Empty(t, ParseKeyValueBlocks("\n\n  \n"))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "mount_directory", NormalizeKey(" Mount  Directory "))
	assert.Equal(t, "device", NormalizeKey("Device"))
}

func TestParseColumns(t *testing.T) {
	out := "NAME TYPE SIZE USED PRIO\n/mnt/data/swapfile file 1G 0B -2\n\n"
	rows := ParseColumns(out, true)
	assert.Equal(t, [][]string{{"/mnt/data/swapfile", "file", "1G", "0B", "-2"}}, rows)
}
