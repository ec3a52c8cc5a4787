package canonicalize

import (
	"encoding/json"
	"testing"

	"github.com/gowebpki/jcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJCS_Sorting(t *testing.T) {
	b, err := JCS(map[string]any{
		"z": map[string]any{"y": "foo", "x": "bar"},
		"a": 1,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"z":{"x":"bar","y":"foo"}}`, string(b))
}

func TestJCS_NoHTMLEscaping(t *testing.T) {
	b, err := JCS(map[string]string{"html": "<b> & </b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<b> & </b>"}`, string(b))
}

func TestJCS_Numbers(t *testing.T) {
	cases := map[string]string{
		"1":          "1",
		"-0":         "0",
		"1.50":       "1.5",
		"1e3":        "1000",
		"1e21":       "1e+21",
		"0.00000012": "1.2e-7",
		"30.1":       "30.1",
	}
	for in, want := range cases {
		got, err := number(json.Number(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestJCS_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) and sorts before U+FB01.
	b, err := JCS(map[string]any{"ﬁ": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"ﬁ\":1}", string(b))
}

func TestFingerprint_Deterministic(t *testing.T) {
	type entry struct {
		Subject string `json:"subject"`
		Culprit string `json:"culprit"`
	}
	a, err := Fingerprint(entry{Subject: "add", Culprit: "call site"})
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"culprit": "call site", "subject": "add"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	_, err = Fingerprint(make(chan int))
	assert.Error(t, err)
}

// TestJCS_AgreesWithReference checks the encoder against an independent
// RFC 8785 implementation.
func TestJCS_AgreesWithReference(t *testing.T) {
	docs := []string{
		`{"b":[1,2.5,true,null],"a":{"\u00e9":"x","e":"y"}}`,
		`{"\u20ac":"Euro","\r":"CR","1":"one","\ud83d\ude00":"smile"}`,
		`[1e21,1e-7,100,0.1,-0,123456789012]`,
		`{"html":"<b>&</b>","text":"line\nbreak\ttab"}`,
		`{"subject":"add","culprit":"call site","position":"the 1st argument"}`,
	}
	for _, doc := range docs {
		want, err := jcs.Transform([]byte(doc))
		require.NoError(t, err, doc)

		var v any
		require.NoError(t, json.Unmarshal([]byte(doc), &v), doc)
		got, err := JCS(v)
		require.NoError(t, err, doc)
		assert.Equal(t, string(want), string(got), doc)
	}
}
