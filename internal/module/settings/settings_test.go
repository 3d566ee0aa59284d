package settings

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_PolicyFor(t *testing.T) {
	t.Run("per-method override wins", func(t *testing.T) {
		s := Settings{
			CancelledPolicy:       CancelledToCancelled,
			MethodCancelledPolicy: map[string]CancelledPolicy{"ideal": CancelledToPending},
		}
		assert.Equal(t, CancelledToPending, s.PolicyFor("ideal"))
		assert.Equal(t, CancelledToCancelled, s.PolicyFor("creditcard"))
	})

	t.Run("defaults to pending", func(t *testing.T) {
		var s Settings
		assert.Equal(t, CancelledToPending, s.PolicyFor("ideal"))
	})
}

func TestStore_Defaults(t *testing.T) {
	st := NewStore(Settings{})
	s := st.Get()

	assert.Equal(t, APIModeOrder, s.APIMode)
	assert.Equal(t, CancelledToPending, s.CancelledPolicy)
	assert.Equal(t, "{storeName} - Order {orderNumber}", s.DescriptionTemplate)
}

func TestStore_Update(t *testing.T) {
	st := NewStore(Settings{})

	st.Update(func(s *Settings) {
		s.Debug = true
		s.BankTransferDueDays = 12
		s.APIMode = ""
	})

	s := st.Get()
	assert.True(t, s.Debug)
	assert.Equal(t, 12, s.BankTransferDueDays)
	assert.Equal(t, APIModeOrder, s.APIMode, "defaults reapplied after update")
}

func TestNewStoreFromViper(t *testing.T) {
	v := viper.New()
	v.Set("engine.api_mode", "payment")
	v.Set("engine.store_customer", true)
	v.Set("engine.bank_transfer_due_days", 12)
	v.Set("engine.surcharges.creditcard.fixed", 0.25)
	v.Set("engine.surcharges.creditcard.percent", 1.9)

	st, err := NewStoreFromViper(v)
	require.NoError(t, err)

	s := st.Get()
	assert.Equal(t, APIModePayment, s.APIMode)
	assert.True(t, s.StoreCustomer)
	assert.Equal(t, 12, s.BankTransferDueDays)

	sc := s.SurchargeFor("creditcard")
	assert.True(t, sc.Applies())
	assert.Equal(t, 0.25, sc.Fixed)
	assert.False(t, s.SurchargeFor("ideal").Applies())
}
