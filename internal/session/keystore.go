package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabrielpoca/journal/internal/filex"
)

// Keystore persists the handful of local keys that live outside the
// encrypted store and bootstrap it: the encryption password and the one-time
// legacy-import completion flag.
type Keystore struct {
	path string
	data keystoreData
}

type keystoreData struct {
	Password       string `json:"password"`
	LegacyImported bool   `json:"legacy_imported"`
}

// LoadKeystore reads the keystore file under dir, returning an empty
// keystore when none exists yet.
func LoadKeystore(dir string) (*Keystore, error) {
	ks := &Keystore{path: filepath.Join(dir, "keystore.json")}

	raw, err := os.ReadFile(ks.path)
	if os.IsNotExist(err) {
		return ks, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	if err := json.Unmarshal(raw, &ks.data); err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	return ks, nil
}

// Password returns the persisted encryption password, "" when absent.
func (k *Keystore) Password() string { return k.data.Password }

// SetPassword persists the encryption password.
func (k *Keystore) SetPassword(password string) error {
	k.data.Password = password
	return k.save()
}

// LegacyImported reports whether the one-time legacy import already ran.
func (k *Keystore) LegacyImported() bool { return k.data.LegacyImported }

// SetLegacyImported records legacy-import completion.
func (k *Keystore) SetLegacyImported() error {
	k.data.LegacyImported = true
	return k.save()
}

func (k *Keystore) save() error {
	raw, err := json.Marshal(k.data)
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(k.path, raw, 0o600)
}
