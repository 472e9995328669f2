package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentabot/rentabot/engine/core"
)

const sampleDescriptor = `bot-alpha:
  description: First automation robot
  endpoint: http://bot-alpha.local:8080
  tags: ubuntu, docker
  max_lock_duration: 7200
bot-beta:
  description: Second automation robot
  tags: windows
bot-gamma:
  description: Bare entry
`

func TestParseDescriptor(t *testing.T) {
	t.Run("Should number resources 1..N in file order", func(t *testing.T) {
		resources, err := ParseDescriptor([]byte(sampleDescriptor), "rentabot.yml")
		require.NoError(t, err)
		require.Len(t, resources, 3)
		assert.Equal(t, 1, resources[0].ID)
		assert.Equal(t, "bot-alpha", resources[0].Name)
		assert.Equal(t, 2, resources[1].ID)
		assert.Equal(t, "bot-beta", resources[1].Name)
		assert.Equal(t, 3, resources[2].ID)
		assert.Equal(t, "bot-gamma", resources[2].Name)
	})
	t.Run("Should carry the declared entry fields", func(t *testing.T) {
		resources, err := ParseDescriptor([]byte(sampleDescriptor), "rentabot.yml")
		require.NoError(t, err)
		alpha := resources[0]
		assert.Equal(t, "First automation robot", alpha.Description)
		assert.Equal(t, "http://bot-alpha.local:8080", alpha.Endpoint)
		assert.Equal(t, "ubuntu, docker", alpha.Tags)
		assert.Equal(t, 7200, alpha.MaxLockDuration)
	})
	t.Run("Should default the maximum lock duration when omitted", func(t *testing.T) {
		resources, err := ParseDescriptor([]byte(sampleDescriptor), "rentabot.yml")
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxLockDuration, resources[1].MaxLockDuration)
	})
	t.Run("Should start every resource available", func(t *testing.T) {
		resources, err := ParseDescriptor([]byte(sampleDescriptor), "rentabot.yml")
		require.NoError(t, err)
		for _, r := range resources {
			assert.False(t, r.IsLocked())
			assert.Equal(t, DetailsAvailableInitial, r.LockDetails)
		}
	})
	t.Run("Should fail on an empty descriptor", func(t *testing.T) {
		_, err := ParseDescriptor([]byte(""), "empty.yml")
		require.Error(t, err)
		var coreErr *core.Error
		require.ErrorAs(t, err, &coreErr)
		assert.Equal(t, core.ErrCodeResourceDescriptorEmpty, coreErr.Code)
		assert.Equal(t, "The resource descriptor is empty : empty.yml", coreErr.Message)
	})
	t.Run("Should fail on malformed YAML", func(t *testing.T) {
		_, err := ParseDescriptor([]byte("bot-alpha:\n\t tags: [broken"), "broken.yml")
		assert.Error(t, err)
	})
}

func TestLoadDescriptor(t *testing.T) {
	t.Run("Should load a catalog from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rentabot.yml")
		require.NoError(t, os.WriteFile(path, []byte(sampleDescriptor), 0o644))
		resources, err := LoadDescriptor(path)
		require.NoError(t, err)
		assert.Len(t, resources, 3)
	})
	t.Run("Should fail on a missing file", func(t *testing.T) {
		_, err := LoadDescriptor(filepath.Join(t.TempDir(), "missing.yml"))
		assert.Error(t, err)
	})
}
