package paynow

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSandbox() *gin.Engine {
	gin.SetMode(gin.TestMode)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewSandboxRouter(SandboxOptions{
		UEN:          "202312345A",
		MerchantName: "GAMEVAULT",
		QRTTL:        10 * time.Minute,
		Now:          func() time.Time { return now },
	})
}

func TestSandboxCreateQR(t *testing.T) {
	r := newSandbox()

	t.Run("Issues QR", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/create-paynow-qr", strings.NewReader(`{"order_id":"o-1","amount":"27.54"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			QRCodeData      string `json:"qr_code_data"`
			ExpiryTimestamp int64  `json:"expiry_timestamp"`
			ReferenceID     string `json:"reference_id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, strings.HasPrefix(body.QRCodeData, "data:image/png;base64,"))
		assert.Equal(t, time.Date(2025, 3, 1, 12, 10, 0, 0, time.UTC).UnixMilli(), body.ExpiryTimestamp)
		assert.True(t, strings.HasPrefix(body.ReferenceID, "GV"))
		assert.Len(t, body.ReferenceID, 12)
	})

	t.Run("Rejects zero amount", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/create-paynow-qr", strings.NewReader(`{"order_id":"o-1","amount":"0"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSandboxCheckID(t *testing.T) {
	r := newSandbox()

	get := func(path string) map[string]interface{} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	body := get("/check-id/mobile-legends/12345678/1234")
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Player5678", body["username"])

	body = get("/check-id/mobile-legends/98765432/")
	assert.Len(t, body["roles"], 2)

	body = get("/check-id/mobile-legends/12a45/")
	assert.Equal(t, "error", body["status"])
}
