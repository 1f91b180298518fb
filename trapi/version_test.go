package trapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchemaVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    SchemaVersion
		wantErr bool
	}{
		{in: "1.0", want: V1_0},
		{in: "1", want: V1_0},
		{in: "1.1", want: V1_1},
		{in: "2", want: V1_1},
		{in: "1.2", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSchemaVersion(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupportedSchemaVersion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaVersion_IsValid(t *testing.T) {
	for _, v := range AllSchemaVersions() {
		assert.True(t, v.IsValid(), v)
		assert.NoError(t, v.Validate())
	}
	assert.False(t, SchemaVersion("9.9").IsValid())
	assert.EqualError(t, SchemaVersion("9.9").Validate(), `trapi version not supported: "9.9"`)
	assert.Equal(t, V1_1, DefaultSchemaVersion)
}
