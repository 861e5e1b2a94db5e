package deviceconfig

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/muurk/espcfg/internal/protocol"
)

// BackupInfo describes a configuration backup: the identity keys the
// firmware writes into every backup and the settings it carries.
type BackupInfo struct {
	// App is the firmware name ("app" key), e.g. "ESPURNA"
	App string `json:"app,omitempty" yaml:"app,omitempty"`

	// Version is the firmware version ("version" key)
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Hostname is the device hostname setting
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"`

	// Keys lists the setting names in sorted order, identity keys excluded
	Keys []string `json:"keys" yaml:"keys"`

	// Path is the file the backup was read from or written to, if any
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Taken is when the backup was written, zero when unknown
	Taken time.Time `json:"taken,omitzero" yaml:"taken,omitempty"`
}

// identity keys are metadata and never restored as settings
var identityKeys = []string{"app", "version", "backup"}

// ParseBackup decodes a backup file and summarizes it.
func ParseBackup(raw []byte) (map[string]any, *BackupInfo, error) {
	settings, err := protocol.DecodeBackup(raw)
	if err != nil {
		return nil, nil, NewParseError("not a configuration backup", err)
	}
	return settings, SummarizeBackup(settings), nil
}

// SummarizeBackup extracts the identity keys and setting names of a decoded
// backup.
func SummarizeBackup(settings map[string]any) *BackupInfo {
	info := &BackupInfo{
		App:      stringValue(settings["app"]),
		Version:  stringValue(settings["version"]),
		Hostname: stringValue(settings["hostname"]),
	}
	info.Keys = lo.Filter(lo.Keys(settings), func(k string, _ int) bool {
		return !lo.Contains(identityKeys, k)
	})
	sort.Strings(info.Keys)
	return info
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
