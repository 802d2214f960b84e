package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBuffer_Channels(t *testing.T) {
	buf, err := ParseBuffer([]byte(`{"signal_1":[4,5,6],"signal_0":[1,2.5,3],"other":"x"}`))
	require.NoError(t, err)
	require.Equal(t, 2, buf.Len())
	assert.Equal(t, []float64{1, 2.5, 3}, buf.Channel(0))
	assert.Equal(t, []float64{4, 5, 6}, buf.Channel(1))
}

func TestParseBuffer_BareArray(t *testing.T) {
	buf, err := ParseBuffer([]byte(` [0.5, -1] `))
	require.NoError(t, err)
	assert.Equal(t, 1, buf.Len())
	assert.Equal(t, []float64{0.5, -1}, buf.Channel(0))
}

func TestParseBuffer_Errors(t *testing.T) {
	_, err := ParseBuffer(nil)
	assert.ErrorIs(t, err, ErrNoBuffer)

	_, err = ParseBuffer([]byte("null"))
	assert.ErrorIs(t, err, ErrNoBuffer)

	for _, in := range []string{`{"signal_0":`, `{"foo":[1]}`, `{"signal_0":[1,"a"]}`, `{"signal_0":3}`, `"text"`} {
		_, err := ParseBuffer([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, "input %s", in)
	}
}

func TestParseMetadata(t *testing.T) {
	md, err := ParseMetadata([]byte(`{"frames": 100, "name": "voltage.dat"}`))
	require.NoError(t, err)
	assert.Equal(t, 100, md.Frames)
	assert.Equal(t, "voltage.dat", md.Name)

	for _, in := range []string{"", "null", `{"frames":0}`, `{"frames":"x"}`, "{"} {
		_, err := ParseMetadata([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestParseBuffer_ChannelsKeepTheirIndex(t *testing.T) {
	buf, err := ParseBuffer([]byte(`{"signal_0":[1,2],"signal_2":[7,8]}`))
	require.NoError(t, err)
	require.Equal(t, 3, buf.Len())
	assert.Equal(t, []float64{1, 2}, buf.Channel(0))
	assert.Nil(t, buf.Channel(1))
	assert.Equal(t, []float64{7, 8}, buf.Channel(2))
	assert.Empty(t, buf.Extract(1, 0, 2, 0))

	_, err = ParseBuffer([]byte(`{"signal_64":[1]}`))
	assert.ErrorIs(t, err, ErrMalformed)
}
