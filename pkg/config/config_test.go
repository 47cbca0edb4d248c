package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChatIDs(t *testing.T) {
	assert.Nil(t, parseChatIDs(""))
	assert.Equal(t, []int64{1, 2, 3}, parseChatIDs("1,2,3"))
	assert.Equal(t, []int64{42}, parseChatIDs(" 42 , oops, "))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "payme", cfg.Database.DBName)
	assert.Equal(t, "https://api.dropboxapi.com", cfg.Dropbox.APIBaseURL)
	assert.Equal(t, "uploads", cfg.Upload.Dir)
}
