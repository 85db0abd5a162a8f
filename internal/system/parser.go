package system

import (
	"bufio"
	"strings"
)

// ParseKeyValueBlocks parses "Key: value" output into blocks separated by
// blank lines. Keys are normalized with NormalizeKey. Lines without a colon
// are ignored. Empty blocks are dropped.
func ParseKeyValueBlocks(output string) []map[string]string {
	var blocks []map[string]string
	current := map[string]string{}

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, current)
			current = map[string]string{}
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		current[NormalizeKey(key)] = strings.TrimSpace(value)
	}
	flush()

	return blocks
}

// NormalizeKey lowercases a key and collapses inner whitespace to a single
// underscore: "Mount  Directory" -> "mount_directory"
func NormalizeKey(key string) string {
	return strings.ToLower(strings.Join(strings.Fields(key), "_"))
}

// ParseColumns splits tabular output into rows of whitespace separated
// fields. When header is true the first non-empty line is skipped.
func ParseColumns(output string, header bool) [][]string {
	var rows [][]string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, fields)
	}
	return rows
}
