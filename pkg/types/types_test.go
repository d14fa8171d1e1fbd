package types

import "testing"

func TestTerminalStates(t *testing.T) {
	cases := []struct {
		state ExportState
		want  bool
	}{
		{ExportPending, false},
		{ExportRunning, false},
		{ExportDone, true},
		{ExportFailed, true},
	}
	for _, tc := range cases {
		if got := tc.state.Terminal(); got != tc.want {
			t.Errorf("%s.Terminal() = %v, want %v", tc.state, got, tc.want)
		}
	}
}
