package securestore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ReadSealedJSON decrypts the file at path and unmarshals it into v. A missing
// file leaves v untouched and reports found=false.
func ReadSealedJSON(path, secret string, v any) (found bool, err error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	plain, err := Decrypt(secret, raw)
	if err != nil {
		return true, err
	}
	return true, json.Unmarshal(plain, v)
}

// WriteSealedJSON marshals v, seals it and replaces the file at path.
func WriteSealedJSON(path, secret string, v any) error {
	path = strings.TrimSpace(path)
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sealed, err := Encrypt(secret, payload)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
