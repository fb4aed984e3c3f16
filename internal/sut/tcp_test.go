package sut

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/mbt-adapter/internal/protocol"
)

// fakeDoorTCP 行分隔文本版智能门 SUT
func fakeDoorTCP(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				scanner := bufio.NewScanner(c)
				for scanner.Scan() {
					var reply string
					switch scanner.Text() {
					case "OPEN":
						reply = "opened"
					case "RESET":
						reply = "RESET_PERFORMED"
					default:
						reply = "invalid_command"
					}
					if _, err := c.Write([]byte(reply + "\n")); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln
}

func TestTCPConnector_StimulusAndReset(t *testing.T) {
	ln := fakeDoorTCP(t)
	defer ln.Close()

	sink := &captureSink{events: make(chan []byte, 8)}
	c := NewTCPConnector(ln.Addr().String(), 2*time.Second, zap.NewNop())
	c.RegisterSink(sink)

	require.NoError(t, c.Start(&protocol.Configuration{}))
	defer c.Stop()
	require.True(t, c.Alive())

	require.NoError(t, c.SendStimulus([]byte("OPEN")))
	select {
	case ev := <-sink.events:
		assert.Equal(t, "opened", string(ev))
	case <-time.After(2 * time.Second):
		t.Fatal("no event from SUT")
	}

	done := make(chan error, 1)
	go func() { done <- c.Reset() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reset did not complete")
	}
}
