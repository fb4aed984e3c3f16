package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_ConfigureReadyStimulusCycle(t *testing.T) {
	var m Machine
	assert.Equal(t, StateDisconnected, m.State())

	require.NoError(t, m.Configure())
	assert.Equal(t, StateConfigured, m.State())

	// 重新配置允许
	require.NoError(t, m.Configure())
	assert.Equal(t, StateConfigured, m.State())

	require.NoError(t, m.MarkReady())
	assert.Equal(t, StateReady, m.State())

	require.NoError(t, m.BeginStimulus())
	assert.Equal(t, StateRunning, m.State())

	require.NoError(t, m.CompleteStimulus())
	assert.Equal(t, StateReady, m.State())
}

func TestMachine_ResetFromRunningAndFaulted(t *testing.T) {
	var m Machine
	require.NoError(t, m.Configure())
	require.NoError(t, m.MarkReady())
	require.NoError(t, m.BeginStimulus())

	require.NoError(t, m.BeginReset())
	assert.Equal(t, StateResetPending, m.State())
	require.NoError(t, m.MarkReady())
	assert.Equal(t, StateReady, m.State())

	m.Fault()
	assert.Equal(t, StateFaulted, m.State())
	require.NoError(t, m.BeginReset(), "faulted state is recoverable via explicit reset")
	require.NoError(t, m.MarkReady())
	assert.Equal(t, StateReady, m.State())
}

// TestMachine_InvalidTransitions 无定义迁移一律拒绝且状态不变
func TestMachine_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *Machine)
		op    func(m *Machine) error
	}{
		{
			name:  "stimulus while disconnected",
			setup: func(m *Machine) {},
			op:    func(m *Machine) error { return m.BeginStimulus() },
		},
		{
			name: "configuration while running",
			setup: func(m *Machine) {
				_ = m.Configure()
				_ = m.MarkReady()
				_ = m.BeginStimulus()
			},
			op: func(m *Machine) error { return m.Configure() },
		},
		{
			name: "reset while configured",
			setup: func(m *Machine) {
				_ = m.Configure()
			},
			op: func(m *Machine) error { return m.BeginReset() },
		},
		{
			name: "sut response while ready",
			setup: func(m *Machine) {
				_ = m.Configure()
				_ = m.MarkReady()
			},
			op: func(m *Machine) error { return m.CompleteStimulus() },
		},
		{
			name: "ready while disconnected",
			setup: func(m *Machine) {},
			op:    func(m *Machine) error { return m.MarkReady() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Machine
			tt.setup(&m)
			before := m.State()

			err := tt.op(&m)
			require.Error(t, err)
			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, before, te.From)
			assert.Equal(t, before, m.State(), "state must not change on rejection")
		})
	}
}
