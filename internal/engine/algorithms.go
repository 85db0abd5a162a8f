package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// HashAlgorithms are the PRF names accepted by --hash, in menu order
var HashAlgorithms = []string{"sha256", "sha512", "whirlpool", "blake2s", "streebog"}

// EncryptionAlgorithms are the cipher names accepted by --encryption, in menu order
var EncryptionAlgorithms = []string{
	"AES", "Camellia", "Kuznyechik", "Serpent", "Twofish",
	"AES-Twofish", "Serpent-AES", "Camellia-Serpent", "Kuznyechik-AES", "Kuznyechik-Twofish", "Twofish-Serpent",
	"AES-Twofish-Serpent", "Serpent-Twofish-AES", "Kuznyechik-Serpent-Camellia",
}

// SelectAlgorithm resolves a menu reply to an algorithm name. The reply is
// either an index into choices or a case-insensitive name. Blank selects
// the engine default and returns "".
func SelectAlgorithm(choices []string, reply string) (string, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", nil
	}
	if i, err := strconv.Atoi(reply); err == nil {
		if i < 0 || i >= len(choices) {
			return "", fmt.Errorf("selection %d out of range [0-%d]", i, len(choices)-1)
		}
		return choices[i], nil
	}
	for _, c := range choices {
		if strings.EqualFold(c, reply) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm %q", reply)
}

// Menu renders choices as "[0] sha256, [1] sha512, ..."
func Menu(choices []string) string {
	items := make([]string, len(choices))
	for i, c := range choices {
		items[i] = fmt.Sprintf("[%d] %s", i, c)
	}
	return strings.Join(items, ", ")
}
