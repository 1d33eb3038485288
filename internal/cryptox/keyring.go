package cryptox

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseKeyring turns configuration entries of the form "version:key" into
// the keyring New expects. The key part accepts everything ParseMasterKey
// does, including a "base64:" prefix. Version 0 registers the legacy
// direct-master-key slot; New still requires some version >= 1 to write
// new records with.
func ParseKeyring(entries []string) (map[int][]byte, error) {

	keys := make(map[int][]byte, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		versionPart, keyPart, found := strings.Cut(entry, ":")
		if !found {
			return nil, fmt.Errorf("keyring entry %q: want version:key", versionPart)
		}

		version, err := strconv.Atoi(strings.TrimSpace(versionPart))
		if err != nil || version < 0 {
			return nil, fmt.Errorf("keyring entry has bad version %q", versionPart)
		}
		if _, dup := keys[version]; dup {
			return nil, fmt.Errorf("keyring version %d listed twice", version)
		}

		key, err := ParseMasterKey(keyPart)
		if err != nil {
			return nil, fmt.Errorf("keyring version %d: %w", version, err)
		}
		keys[version] = key
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keys, nil
}
