package mcp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil analysis service returns error", func(t *testing.T) {
		ports := &Ports{Knowledge: &mockKnowledgeService{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingAnalysisService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Analysis:  &mockAnalysisService{},
			Knowledge: &mockKnowledgeService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Empty(t, server.root)
	})

	t.Run("root is made absolute", func(t *testing.T) {
		server := newTestServer(t, nil, nil, WithRoot("."))
		assert.True(t, filepath.IsAbs(server.root))
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil analysis service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingAnalysisService)
	})

	t.Run("nil knowledge service returns error", func(t *testing.T) {
		ports := &Ports{Analysis: &mockAnalysisService{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingKnowledgeService)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Analysis:  &mockAnalysisService{},
			Knowledge: &mockKnowledgeService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}
