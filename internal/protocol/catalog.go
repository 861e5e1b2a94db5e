package protocol

// Message ids the device sends under the "message" key. Id 6 is unused.
const (
	MsgRemoteUpdateStarted = 1
	MsgOTAUpdateStarted    = 2
	MsgParseError          = 3
	MsgInvalidBackup       = 4
	MsgSavedRebootNeeded   = 5
	MsgPasswordMismatch    = 7
	MsgChangesSaved        = 8
	MsgNoChanges           = 9
	MsgSessionExpired      = 10
)

var catalog = map[int]string{
	MsgRemoteUpdateStarted: "Remote update started",
	MsgOTAUpdateStarted:    "OTA update started",
	MsgParseError:          "Error parsing data!",
	MsgInvalidBackup:       "The file does not look like a valid configuration backup or is corrupted",
	MsgSavedRebootNeeded:   "Changes saved. You should reboot your board now",
	MsgPasswordMismatch:    "Passwords do not match!",
	MsgChangesSaved:        "Changes saved",
	MsgNoChanges:           "No changes detected",
	MsgSessionExpired:      "Session expired, please reload page...",
}

// MessageText returns the operator text for a message id.
func MessageText(id int) (string, bool) {
	text, ok := catalog[id]
	return text, ok
}
