package sut

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/mbt-adapter/internal/protocol"
)

func TestDoorVocabulary_CommandFor(t *testing.T) {
	v := &DoorVocabulary{}

	tests := []struct {
		name    string
		label   protocol.Label
		want    string
		wantErr bool
	}{
		{
			name:  "open",
			label: protocol.Stimulus("open", "door"),
			want:  "OPEN",
		},
		{
			name:  "close",
			label: protocol.Stimulus("close", "door"),
			want:  "CLOSE",
		},
		{
			name: "lock with passcode",
			label: protocol.Stimulus("lock", "door",
				protocol.Parameter{Name: "passcode", Type: protocol.ParamInteger, Value: 1234}),
			want: "LOCK:1234",
		},
		{
			name:    "lock without passcode",
			label:   protocol.Stimulus("lock", "door"),
			wantErr: true,
		},
		{
			name:    "unknown stimulus",
			label:   protocol.Stimulus("explode", "door"),
			wantErr: true,
		},
		{
			name:    "response is not a stimulus",
			label:   protocol.Response("opened", "door"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := v.CommandFor(&tt.label)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(cmd))
		})
	}
}

func TestDoorVocabulary_LabelFor(t *testing.T) {
	v := &DoorVocabulary{}

	l := v.LabelFor([]byte("OPENED"))
	assert.Equal(t, protocol.SortResponse, l.Sort)
	assert.Equal(t, "opened", l.Name)
	assert.Equal(t, []byte("OPENED"), l.Physical)
}

func TestDoorVocabulary_SupportedLabels(t *testing.T) {
	v := &DoorVocabulary{}
	labels := v.SupportedLabels()
	require.NotEmpty(t, labels)

	stimuli := 0
	for _, l := range labels {
		if l.Sort == protocol.SortStimulus {
			stimuli++
		}
	}
	assert.Equal(t, 4, stimuli, "open/close/lock/unlock")

	cfg := v.DefaultConfiguration()
	require.NotNil(t, cfg.Item("endpoint"))
}
