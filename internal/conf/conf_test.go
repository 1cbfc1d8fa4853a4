package conf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", raw: `"1.5s"`, want: 1500 * time.Millisecond},
		{name: "nanoseconds", raw: `1000`, want: time.Microsecond},
		{name: "null", raw: `null`, want: 0},
		{name: "garbage", raw: `"soon"`, wantErr: true},
		{name: "bool", raw: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.raw), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.AsDuration())
		})
	}
}

func TestBootstrap_Decode(t *testing.T) {
	raw := `{
		"server": {"http": {"addr": "0.0.0.0:8000", "timeout": "1s"}},
		"data": {"store": "redis", "namespace": "shorturl", "redis": {"addr": "127.0.0.1:6379", "read_timeout": "200ms"}},
		"app": {"shorturl_base": "http://sho.rt/", "shortcode_length": 6}
	}`

	var bc Bootstrap
	require.NoError(t, json.Unmarshal([]byte(raw), &bc))

	assert.Equal(t, "0.0.0.0:8000", bc.Server.Http.Addr)
	assert.Equal(t, time.Second, bc.Server.Http.Timeout.AsDuration())
	assert.Equal(t, "redis", bc.Data.Store)
	assert.Equal(t, 200*time.Millisecond, bc.Data.Redis.ReadTimeout.AsDuration())
	assert.Equal(t, 6, bc.App.ShortcodeLength)
	assert.Nil(t, bc.Data.Database)
}
