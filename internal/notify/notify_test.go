package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/catalog_sync/internal/utils"
)

func TestWebhookSignsPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		unix, err := strconv.ParseInt(r.Header.Get(utils.TimestampHeader), 10, 64)
		require.NoError(t, err)
		ts := time.Unix(unix, 0)
		assert.NoError(t, utils.VerifyPayload("secret", r.Header.Get(utils.SignatureHeader), ts, body, time.Minute, time.Now()))
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "secret").Notify(t.Context(), "Catalog upload failed", map[string]any{"catalog_id": 1})
	require.NoError(t, err)
	assert.Equal(t, "Catalog upload failed", got.Subject)
	assert.EqualValues(t, 1, got.Fields["catalog_id"])
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "s").Notify(t.Context(), "x", nil)
	assert.ErrorContains(t, err, "502")
}

type fakePublisher struct {
	input *sns.PublishInput
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, f.err
}

func TestSNSPublish(t *testing.T) {
	pub := &fakePublisher{}
	long := string(make([]byte, 150))

	require.NoError(t, NewSNSWithClient(pub, "arn:aws:sns:us-east-1:1:alerts").Notify(t.Context(), long, map[string]any{"records": 3}))
	assert.Equal(t, "arn:aws:sns:us-east-1:1:alerts", aws.ToString(pub.input.TopicArn))
	assert.Len(t, aws.ToString(pub.input.Subject), subjectLimit)
	assert.Contains(t, aws.ToString(pub.input.Message), `"records": 3`)
}

type failing struct{ err error }

func (f failing) Notify(context.Context, string, map[string]any) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	pub := &fakePublisher{}
	m := Multi{failing{a}, NewSNSWithClient(pub, "arn"), failing{b}, Nop{}}

	err := m.Notify(t.Context(), "s", nil)
	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)
	assert.NotNil(t, pub.input, "later backends still run")
	assert.NoError(t, Multi{}.Notify(t.Context(), "s", nil))
}
