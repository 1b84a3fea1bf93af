package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/csm-probes/model"
)

const pingOutput = `PING 10.0.0.1 (10.0.0.1) 56(84) bytes of data.
64 bytes from 10.0.0.1: icmp_seq=1 ttl=64 time=12.4 ms

--- 10.0.0.1 ping statistics ---
1 packets transmitted, 1 received, 0% packet loss, time 0ms
`

func fakeRunner(out string, err error, gotArgs *[]string) CommandRunner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		if gotArgs != nil {
			*gotArgs = append([]string{name}, args...)
		}
		return []byte(out), err
	}
}

func TestParseLatency(t *testing.T) {
	cases := []struct {
		name    string
		out     string
		want    float64
		wantErr bool
	}{
		{"linux", pingOutput, 12.4, false},
		{"integer", "time=7 ms", 7, false},
		{"sub-ms", "64 bytes from x: time<1 ms", 1, false},
		{"unreachable", "From 10.0.0.2 icmp_seq=1 Destination Host Unreachable", 0, true},
		{"empty", "", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLatency(tc.out)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrNoLatency)
				return
			}
			require.NoError(t, err)
			require.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestPinger_Args(t *testing.T) {
	var args []string
	p := &Pinger{PacketSize: 1400, Run: fakeRunner(pingOutput, nil, &args)}
	ms, err := p.Ping(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	require.InDelta(t, 12.4, ms, 1e-9)
	require.Equal(t, []string{"ping", "-c", "1", "-s", "1400", "10.0.0.1"}, args)

	p = &Pinger{Command: "ping6", Run: fakeRunner(pingOutput, nil, &args)}
	_, err = p.Ping(context.Background(), "::1")
	require.NoError(t, err)
	require.Equal(t, []string{"ping6", "-c", "1", "::1"}, args)
}

func TestPingProbe_Success(t *testing.T) {
	p, err := NewPingProbe(&Pinger{Run: fakeRunner(pingOutput, nil, nil)}, "10.0.0.1", "csm_peering_ping.vpc")
	require.NoError(t, err)

	m, err := p.Probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, "csm_peering_ping.vpc.success", m.Name)
	require.Equal(t, model.Timer, m.MetricType)
	require.InDelta(t, 12.4, m.ValueOr(0), 1e-9)
}

func TestPingProbe_UnparseableIsFailedCounter(t *testing.T) {
	p, err := NewPingProbe(&Pinger{Run: fakeRunner("garbage", nil, nil)}, "10.0.0.1", "csm_peering_ping.vpc")
	require.NoError(t, err)

	m, err := p.Probe(context.Background())
	require.ErrorIs(t, err, ErrProbeFailed)
	require.ErrorIs(t, err, ErrNoLatency)
	require.Equal(t, "csm_peering_ping.vpc.failed", m.Name)
	require.Equal(t, model.Counter, m.MetricType)
	require.Nil(t, m.Value)
}

func TestPingProbe_ProcessError(t *testing.T) {
	p, err := NewPingProbe(&Pinger{Run: fakeRunner("", errors.New("exit status 1"), nil)}, "10.0.0.1", "x")
	require.NoError(t, err)

	m, err := p.Probe(context.Background())
	require.ErrorIs(t, err, ErrProbeFailed)
	require.Equal(t, "x.failed", m.Name)
	require.Equal(t, model.Counter, m.MetricType)
}

func TestNewPingProbe_Validation(t *testing.T) {
	_, err := NewPingProbe(nil, "", "x")
	require.Error(t, err)
	_, err = NewPingProbe(nil, "h", "")
	require.Error(t, err)
}
