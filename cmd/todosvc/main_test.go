package main

import (
	"testing"

	"github.com/ichigozero/todokit/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistration(t *testing.T) {
	testCases := []struct {
		name      string
		httpAddr  string
		wantHost  string
		wantPort  int
		wantCheck string
	}{
		{name: "any interface", httpAddr: ":8000", wantHost: "localhost", wantPort: 8000, wantCheck: "http://localhost:8000/health"},
		{name: "explicit host", httpAddr: "10.0.0.5:9090", wantHost: "10.0.0.5", wantPort: 9090, wantCheck: "http://10.0.0.5:9090/health"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			asr, err := newRegistration(tc.httpAddr)
			require.NoError(t, err)
			assert.Equal(t, config.ServiceName, asr.Name)
			assert.NotEmpty(t, asr.ID)
			assert.Equal(t, tc.wantHost, asr.Address)
			assert.Equal(t, tc.wantPort, asr.Port)
			require.NotNil(t, asr.Check)
			assert.Equal(t, tc.wantCheck, asr.Check.HTTP)
		})
	}

	_, err := newRegistration("no-port")
	assert.Error(t, err)
}
