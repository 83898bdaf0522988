package paynow

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16(t *testing.T) {
	assert.Equal(t, uint16(0x29B1), crc16("123456789"))
}

func TestPayload(t *testing.T) {
	p := Payload(Params{
		UEN:          "202312345A",
		MerchantName: "GAMEVAULT",
		Amount:       decimal.RequireFromString("27.54"),
		Reference:    "GVREF1",
		Expiry:       time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
	})

	assert.True(t, strings.HasPrefix(p, "000201010212"))
	assert.Contains(t, p, "0009SG.PAYNOW")
	assert.Contains(t, p, "0210202312345A")
	assert.Contains(t, p, "040820261014")
	assert.Contains(t, p, "540527.54")
	assert.Contains(t, p, "5909GAMEVAULT")
	assert.Contains(t, p, "62100106GVREF1")

	// 校验位覆盖 "6304" 之前的全部内容
	body, sum := p[:len(p)-4], p[len(p)-4:]
	assert.True(t, strings.HasSuffix(body, "6304"))
	assert.Len(t, sum, 4)
	assert.Equal(t, sum, strings.ToUpper(sum))
}

func TestPayloadTruncatesName(t *testing.T) {
	p := Payload(Params{MerchantName: strings.Repeat("X", 40), Amount: decimal.NewFromInt(1)})
	assert.Contains(t, p, "5925"+strings.Repeat("X", 25)+"60")
}

func TestDataURL(t *testing.T) {
	url, err := DataURL("hello", 128)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}
