package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSettings_MissingFileUsesDefaults(t *testing.T) {
	fs := NewFileSettings(filepath.Join(t.TempDir(), "settings.txt"))
	cfg, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfiguration(), cfg)
}

func TestNewFileSettings_DefaultPath(t *testing.T) {
	assert.Equal(t, defaultSettingsPath, NewFileSettings("").Path)
}

func TestFileSettings_SaveFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")
	fs := NewFileSettings(path)
	cfg := Configuration{
		AllianceColor: AllianceBlue,
		DeviceIP:      "10.0.100.21",
		ArenaIP:       "10.0.100.5",
		ArenaPort:     "9000",
		UseDHCP:       false,
	}
	require.NoError(t, fs.Save(cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "allianceColor=Blue\narenaIP=10.0.100.5\ndeviceIP=10.0.100.21\narenaPort=9000\nuseDHCP=0\n", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestFileSettings_Load(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    func(c *Configuration)
	}{
		{
			name:    "DHCPOn",
			content: "useDHCP=1\n",
			want:    func(c *Configuration) { c.UseDHCP = true },
		},
		{
			name:    "DHCPOff",
			content: "useDHCP=0\n",
			want:    func(c *Configuration) { c.UseDHCP = false },
		},
		{
			name:    "JunkLinesIgnored",
			content: "garbage\n=novalue\nunknown=1\narenaPort=1234\n",
			want:    func(c *Configuration) { c.ArenaPort = "1234" },
		},
		{
			name:    "InvalidColorIgnored",
			content: "allianceColor=Purple\n",
			want:    func(c *Configuration) {},
		},
		{
			name:    "CRLF",
			content: "allianceColor=Field\r\ndeviceIP=10.0.0.2\r\n",
			want: func(c *Configuration) {
				c.AllianceColor = AllianceField
				c.DeviceIP = "10.0.0.2"
			},
		},
		{
			name:    "EmptyDeviceIP",
			content: "deviceIP=\n",
			want:    func(c *Configuration) { c.DeviceIP = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := NewFileSettings(path).Load()
			require.NoError(t, err)

			want := DefaultConfiguration()
			tt.want(&want)
			assert.Equal(t, want, cfg)
		})
	}
}

func TestFileSettings_SaveFailure(t *testing.T) {
	fs := NewFileSettings(filepath.Join(t.TempDir(), "missing", "settings.txt"))
	assert.Error(t, fs.Save(DefaultConfiguration()))
}

func TestConfigStore_WithFileSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")
	cs, err := NewConfigStore(NewFileSettings(path))
	require.NoError(t, err)

	_, err = cs.Update(ConfigChanges{AllianceColor: strPtr("Field"), UseDHCP: boolPtr(false)})
	require.NoError(t, err)

	reloaded, err := NewConfigStore(NewFileSettings(path))
	require.NoError(t, err)
	assert.Equal(t, cs.Snapshot(), reloaded.Snapshot())
}

func TestConfigStore_PersistenceErrorNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.txt")
	cs, err := NewConfigStore(NewFileSettings(path))
	require.NoError(t, err)

	_, err = cs.Update(ConfigChanges{ArenaPort: strPtr("9000")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Equal(t, "9000", cs.Snapshot().ArenaPort)
}
