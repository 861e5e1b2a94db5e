package panel

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		counts Counts
		want   FollowUp
	}{
		{"all three", Counts{Total: 3, Reset: 1, Reconnect: 1, Reload: 1}, FollowUpReset},
		{"reconnect and reload", Counts{Total: 2, Reconnect: 1, Reload: 1}, FollowUpReconnect},
		{"reload only", Counts{Total: 1, Reload: 1}, FollowUpReload},
		{"none", Counts{}, FollowUpNone},
		{"plain changes", Counts{Total: 4}, FollowUpNone},
		{"reset and reload", Counts{Total: 2, Reset: 1, Reload: 1}, FollowUpReset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.counts); got != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.counts, got, tt.want)
			}
		})
	}
}

func TestFollowUpPrompt(t *testing.T) {
	if FollowUpNone.Prompt() != "" {
		t.Errorf("FollowUpNone.Prompt() = %q, want empty", FollowUpNone.Prompt())
	}
	for _, f := range []FollowUp{FollowUpReset, FollowUpReconnect, FollowUpReload} {
		if f.Prompt() == "" {
			t.Errorf("%v.Prompt() is empty", f)
		}
	}
}
