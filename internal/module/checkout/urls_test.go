package checkout

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderlink/server/internal/module/order"
)

func TestReturnURL(t *testing.T) {
	o := &order.Order{ID: uuid.New(), Key: "wc_key_abc"}

	t.Run("appends correlation parameters", func(t *testing.T) {
		got, err := ReturnURL("https://shop.example.com/thanks?utm=x", o)
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, o.ID.String(), q.Get("order_id"))
		assert.Equal(t, "wc_key_abc", q.Get("key"))
		assert.Equal(t, FilterFlag, q.Get("filter_flag"))
		assert.Equal(t, "x", q.Get("utm"), "existing params preserved")
	})

	t.Run("internationalized host converted to ascii", func(t *testing.T) {
		got, err := ReturnURL("https://bücher.example/thanks", o)
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, "xn--bcher-kva.example", u.Hostname())
	})

	t.Run("port preserved", func(t *testing.T) {
		got, err := ReturnURL("https://shop.example.com:8443/thanks", o)
		require.NoError(t, err)
		assert.Contains(t, got, "shop.example.com:8443")
	})
}

func TestWebhookURL(t *testing.T) {
	o := &order.Order{ID: uuid.New(), Key: "wc_key_abc"}

	got, err := WebhookURL("https://shop.example.com", "/webhooks/provider", o)
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/webhooks/provider", u.Path)
	assert.Equal(t, o.ID.String(), u.Query().Get("order_id"))
	assert.Equal(t, "wc_key_abc", u.Query().Get("key"))
}
