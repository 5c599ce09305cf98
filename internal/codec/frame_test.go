package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMethod(t *testing.T) {
	data, err := EncodeMethod("auth", []any{int64(42), int64(7), "K"}, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"method","method":"auth","arguments":[42,7,"K"],"id":0}`, string(data))
}

func TestEncodeMethodNoArgs(t *testing.T) {
	data, err := EncodeMethod("history", nil, 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"method","method":"history","arguments":[],"id":3}`, string(data))
}

func TestEncodeMethodKeepsArgumentOrder(t *testing.T) {
	data, err := EncodeMethod("whisper", []any{"alice", "hi there"}, 12)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"method","method":"whisper","arguments":["alice","hi there"],"id":12}`, string(data))
}

func TestDecodeReplyFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"reply","id":5,"data":{"ok":true}}`))
	require.NoError(t, err)
	assert.Equal(t, "reply", f.Type)
	assert.Equal(t, int64(5), f.ID)
	require.NotNil(t, f.Reply)

	_, ok := f.Reply.OptionalObject("data")
	assert.True(t, ok)
}

func TestDecodeEventFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"event","event":"UserJoin","data":{"id":9,"username":"bob"}}`))
	require.NoError(t, err)
	assert.Equal(t, "event", f.Type)
	assert.Equal(t, "UserJoin", f.Event)

	id, err := f.Data.Int("id")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

func TestDecodeFrameFailures(t *testing.T) {
	cases := map[string]string{
		"not json":           `{`,
		"missing type":       `{"id":1}`,
		"unknown type":       `{"type":"method"}`,
		"reply without id":   `{"type":"reply"}`,
		"reply id not int":   `{"type":"reply","id":"abc"}`,
		"event without name": `{"type":"event","data":{}}`,
		"event without data": `{"type":"event","event":"WelcomeEvent"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeFrame([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestObjectReportsFirstMissingField(t *testing.T) {
	obj, err := ParseObject([]byte(`{"present":"yes"}`))
	require.NoError(t, err)

	_, err = obj.String("absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"absent"`)
}

func TestObjectIntRejectsFloat(t *testing.T) {
	obj, err := ParseObject([]byte(`{"n":1.5}`))
	require.NoError(t, err)

	_, err = obj.Int("n")
	assert.Error(t, err)
}

func TestObjectLargeInt(t *testing.T) {
	obj, err := ParseObject([]byte(`{"id":9007199254740993}`))
	require.NoError(t, err)

	id, err := obj.Int("id")
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), id)
}
