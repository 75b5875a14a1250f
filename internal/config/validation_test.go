package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:   "bad server",
			mutate: func(c *Config) { c.Server = ServerConfig{Host: "http://x", Port: 0, Scheme: "ws"} },
			fields: []string{"server.host", "server.port", "server.scheme"},
		},
		{
			name:   "realm without url",
			mutate: func(c *Config) { c.Auth.Realm = "bodhi" },
			fields: []string{"auth.url"},
		},
		{
			name:   "non http urls",
			mutate: func(c *Config) { c.Auth.Issuer = "id.example.com"; c.Hub.Endpoint = "ftp://hub" },
			fields: []string{"auth.issuer", "hub.endpoint"},
		},
		{
			name:   "negative metadata ttl",
			mutate: func(c *Config) { c.Auth.MetadataCacheTTL = -time.Second },
			fields: []string{"auth.metadataCacheTTL"},
		},
		{
			name:   "bad logging",
			mutate: func(c *Config) { c.Logging = LoggingConfig{Level: "trace", Format: "xml"} },
			fields: []string{"logging.level", "logging.format"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			var fields []string
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("server.port", "must be between 1 and 65535", 0)
	assert.Equal(t, "field 'server.port': must be between 1 and 65535", errs.Error())

	errs.Add("", "general problem", nil)
	assert.Contains(t, errs.Error(), "validation failed: ")
	assert.Contains(t, errs.Error(), "general problem")
}
