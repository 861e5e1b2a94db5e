package panel

// FollowUp is the single action offered to the operator after a save.
type FollowUp int

const (
	FollowUpNone FollowUp = iota
	FollowUpReload
	FollowUpReconnect
	FollowUpReset
)

// String returns the follow-up name.
func (f FollowUp) String() string {
	switch f {
	case FollowUpReload:
		return "reload"
	case FollowUpReconnect:
		return "reconnect"
	case FollowUpReset:
		return "reset"
	default:
		return "none"
	}
}

// Prompt is the question shown to the operator for the follow-up.
func (f FollowUp) Prompt() string {
	switch f {
	case FollowUpReset:
		return "You have to reset the board for the changes to take effect, do you want to do it now?"
	case FollowUpReconnect:
		return "You have to reset the wifi connection for the changes to take effect, do you want to do it now?"
	case FollowUpReload:
		return "You have to reload the page to see the latest changes, do you want to do it now?"
	default:
		return ""
	}
}

// Classify picks the strongest follow-up required by the counters.
// Reset wins over reconnect, which wins over reload.
func Classify(c Counts) FollowUp {
	switch {
	case c.Reset > 0:
		return FollowUpReset
	case c.Reconnect > 0:
		return FollowUpReconnect
	case c.Reload > 0:
		return FollowUpReload
	default:
		return FollowUpNone
	}
}
