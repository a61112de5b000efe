package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ecrwatch/pkg/errors"
)

const pushEvent = `{
  "version": "0",
  "id": "13cde686-328b-6117-af20-0e5566167482",
  "detail-type": "ECR Image Action",
  "source": "aws.ecr",
  "account": "123456789012",
  "time": "2021-10-05T20:15:00Z",
  "region": "us-east-1",
  "resources": [],
  "detail": {
    "result": "SUCCESS",
    "repository-name": "svc-a",
    "image-digest": "sha256:7f5b2640fe6fb4f46592dfd3410c4a79dac4f89e4782432e0378abcd1234",
    "action-type": "PUSH",
    "image-tag": "1.2.4"
  }
}`

func TestParse(t *testing.T) {
	ev, err := Parse([]byte(pushEvent))
	require.NoError(t, err)

	assert.Equal(t, "13cde686-328b-6117-af20-0e5566167482", ev.EventID)
	assert.Equal(t, "123456789012", ev.AccountID)
	assert.Equal(t, "us-east-1", ev.Region)
	assert.Equal(t, "svc-a", ev.RepositoryName)
	assert.Equal(t, "1.2.4", ev.ImageTag)
	assert.Equal(t, 0, ev.RetryCount)
	assert.False(t, ev.HasRetryCount())
}

func TestParse_RetryCount(t *testing.T) {
	ev, err := Parse([]byte(`{"account":"1","region":"r","retryCount":2,"detail":{"repository-name":"a","image-tag":"1.0.0"}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, ev.RetryCount)
	assert.True(t, ev.HasRetryCount())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `not json`},
		{name: "array", raw: `[]`},
		{name: "null", raw: `null`},
		{name: "missing account", raw: `{"region":"r","detail":{"repository-name":"a","image-tag":"1.0.0"}}`},
		{name: "missing region", raw: `{"account":"1","detail":{"repository-name":"a","image-tag":"1.0.0"}}`},
		{name: "missing detail", raw: `{"account":"1","region":"r"}`},
		{name: "missing repository", raw: `{"account":"1","region":"r","detail":{"image-tag":"1.0.0"}}`},
		{name: "missing tag", raw: `{"account":"1","region":"r","detail":{"repository-name":"a"}}`},
		{name: "numeric account", raw: `{"account":1,"region":"r","detail":{"repository-name":"a","image-tag":"1.0.0"}}`},
		{name: "numeric tag", raw: `{"account":"1","region":"r","detail":{"repository-name":"a","image-tag":1}}`},
		{name: "string retry count", raw: `{"account":"1","region":"r","retryCount":"2","detail":{"repository-name":"a","image-tag":"1.0.0"}}`},
		{name: "negative retry count", raw: `{"account":"1","region":"r","retryCount":-1,"detail":{"repository-name":"a","image-tag":"1.0.0"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.IsParse(err))
		})
	}
}

func TestEncode_PreservesOriginalFields(t *testing.T) {
	ev, err := Parse([]byte(pushEvent))
	require.NoError(t, err)

	body, err := Encode(ev.WithRetryCount(2))
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Equal(t, "aws.ecr", fields["source"])
	assert.Equal(t, float64(2), fields["retryCount"])
	detail := fields["detail"].(map[string]interface{})
	assert.Equal(t, "PUSH", detail["action-type"])

	again, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, again.EventID)
	assert.Equal(t, 2, again.RetryCount)
}

func TestEncode_WithoutPayload(t *testing.T) {
	ev := &PushEvent{EventID: "e-1", AccountID: "1", Region: "r", RepositoryName: "a", ImageTag: "1.0.0", RetryCount: 3}

	body, err := Encode(ev)
	require.NoError(t, err)

	again, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, *ev, PushEvent{
		EventID:        again.EventID,
		AccountID:      again.AccountID,
		Region:         again.Region,
		RepositoryName: again.RepositoryName,
		ImageTag:       again.ImageTag,
		RetryCount:     again.RetryCount,
	})
}

func TestEncodeParse_RoundTrip(t *testing.T) {
	field := rapid.StringMatching(`[A-Za-z0-9._/<>&"-]{1,24}`)

	rapid.Check(t, func(t *rapid.T) {
		raw, err := json.Marshal(map[string]interface{}{
			"account": field.Draw(t, "account"),
			"region":  field.Draw(t, "region"),
			"detail": map[string]interface{}{
				"repository-name": field.Draw(t, "repository"),
				"image-tag":       field.Draw(t, "tag"),
			},
		})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		ev, err := Parse(raw)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}

		n := rapid.IntRange(1, 10).Draw(t, "retryCount")
		body, err := Encode(ev.WithRetryCount(n))
		if err != nil {
			t.Fatalf("encode: %v", err)
		}

		again, err := Parse(body)
		if err != nil {
			t.Fatalf("reparse: %v", err)
		}

		if again.AccountID != ev.AccountID || again.Region != ev.Region ||
			again.RepositoryName != ev.RepositoryName || again.ImageTag != ev.ImageTag {
			t.Fatalf("round trip changed event: %+v -> %+v", ev, again)
		}
		if again.RetryCount != n {
			t.Fatalf("retryCount = %d, want %d", again.RetryCount, n)
		}
	})
}
