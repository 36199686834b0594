package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsentStatus_Usable(t *testing.T) {
	assert.True(t, ConsentStatusExpressWritten.Usable())
	assert.True(t, ConsentStatusPriorExpress.Usable())
	assert.False(t, ConsentStatusNoConsentObtained.Usable())
	assert.False(t, ConsentStatusDoNotCall.Usable())
}

func TestDoNotCallEntry_ActiveAt(t *testing.T) {
	now := time.Now()

	permanent := &DoNotCallEntry{PhoneHash: "abc"}
	assert.True(t, permanent.ActiveAt(now))

	future := now.Add(24 * time.Hour)
	assert.True(t, (&DoNotCallEntry{ExpiryDate: &future}).ActiveAt(now))

	past := now.Add(-24 * time.Hour)
	assert.False(t, (&DoNotCallEntry{ExpiryDate: &past}).ActiveAt(now))
}

func TestContactLog_JSONNeverExposesPhone(t *testing.T) {
	log := &ContactLog{
		PhoneEncrypted: "ciphertext-here",
		PhoneHash:      "hash-here",
		Method:         ContactMethodCall,
		ConsentStatus:  ConsentStatusPriorExpress,
	}

	data, err := json.Marshal(log)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ciphertext-here")
	assert.NotContains(t, string(data), "hash-here")
}

func TestConsentRecord_JSONNeverExposesPhone(t *testing.T) {
	rec := &ConsentRecord{
		PhoneEncrypted: "ciphertext-here",
		PhoneHash:      "hash-here",
		ConsentMethod:  ConsentMethodWebForm,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ciphertext-here")
	assert.NotContains(t, string(data), "hash-here")
}

func TestConsentRecord_Active(t *testing.T) {
	rec := &ConsentRecord{}
	assert.True(t, rec.Active())

	now := time.Now()
	rec.RevocationTimestamp = &now
	assert.False(t, rec.Active())
}
