package emitter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	cases := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{"/run/apimon.sock", Target{NetworkUnix, "/run/apimon.sock"}, false},
		{"unix:///run/apimon.sock", Target{NetworkUnix, "/run/apimon.sock"}, false},
		{"unix:relative.sock", Target{NetworkUnix, "relative.sock"}, false},
		{"tcp://graphite:2003", Target{NetworkTCP, "graphite:2003"}, false},
		{"tcp://graphite", Target{}, true},
		{"udp://graphite:2003", Target{}, true},
		{"unix://", Target{}, true},
		{"", Target{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTarget(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidTarget)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestTCPTarget(t *testing.T) {
	require.Equal(t, "tcp://10.0.0.1:2003", TCPTarget("10.0.0.1", 2003).String())
	require.Equal(t, "[::1]:2003", TCPTarget("::1", 2003).Address)
}

func TestNewEmitter_InvalidTarget(t *testing.T) {
	_, err := NewEmitter(Target{}, 0, nil)
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = NewEmitter(Target{Network: "udp", Address: "x:1"}, 0, nil)
	require.ErrorIs(t, err, ErrInvalidTarget)
}
