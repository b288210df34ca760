package fetch

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"AssetVault/config"
)

func withSourcePolicy(t *testing.T, hosts []string, allowPrivate bool) {
	t.Helper()
	oldHosts := config.AppConfig.SourceAllowedHosts
	oldPrivate := config.AppConfig.SourceAllowPrivate
	config.AppConfig.SourceAllowedHosts = hosts
	config.AppConfig.SourceAllowPrivate = allowPrivate
	t.Cleanup(func() {
		config.AppConfig.SourceAllowedHosts = oldHosts
		config.AppConfig.SourceAllowPrivate = oldPrivate
	})
}

func TestValidateSourceURLScheme(t *testing.T) {
	withSourcePolicy(t, nil, true)
	assert.Error(t, ValidateSourceURL("ftp://example.com/file"))
	assert.Error(t, ValidateSourceURL("file:///etc/passwd"))
	assert.Error(t, ValidateSourceURL("http://"))
	assert.NoError(t, ValidateSourceURL("https://example.com/file"))
}

func TestValidateSourceURLAllowlist(t *testing.T) {
	withSourcePolicy(t, []string{"cdn.example.com", ".trusted.net"}, true)
	assert.NoError(t, ValidateSourceURL("https://cdn.example.com/clip.mp4"))
	assert.NoError(t, ValidateSourceURL("https://media.trusted.net/clip.mp4"))
	assert.Error(t, ValidateSourceURL("https://evil.example.com/clip.mp4"))
}

func TestValidateSourceURLBlocksPrivate(t *testing.T) {
	withSourcePolicy(t, nil, false)
	assert.Error(t, ValidateSourceURL("http://127.0.0.1/file"))
	assert.Error(t, ValidateSourceURL("http://10.0.0.5/file"))
	assert.Error(t, ValidateSourceURL("http://192.168.1.10/file"))
	assert.Error(t, ValidateSourceURL("http://localhost/file"))
	assert.Error(t, ValidateSourceURL("http://printer.local/file"))
}

func TestValidateSourceURLAllowPrivateOverride(t *testing.T) {
	withSourcePolicy(t, nil, true)
	assert.NoError(t, ValidateSourceURL("http://127.0.0.1:9000/file"))
	assert.NoError(t, ValidateSourceURL("http://localhost:8080/file"))
}

func TestHostAllowed(t *testing.T) {
	assert.True(t, hostAllowed("anything.example.com", nil))
	assert.True(t, hostAllowed("CDN.Example.Com", []string{"cdn.example.com"}))
	assert.True(t, hostAllowed("a.b.trusted.net", []string{".trusted.net"}))
	assert.False(t, hostAllowed("trusted.net.evil.com", []string{"trusted.net"}))
}

func TestIsBlockedIP(t *testing.T) {
	assert.True(t, isBlockedIP(net.ParseIP("127.0.0.1")))
	assert.True(t, isBlockedIP(net.ParseIP("10.1.2.3")))
	assert.True(t, isBlockedIP(net.ParseIP("169.254.1.1")))
	assert.True(t, isBlockedIP(net.ParseIP("0.0.0.0")))
	assert.True(t, isBlockedIP(nil))
	assert.False(t, isBlockedIP(net.ParseIP("93.184.216.34")))
}
