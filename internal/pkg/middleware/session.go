package middleware

import (
	"net/http"
	"regexp"

	"gamevault/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionHeader 每个浏览器标签页一个结账会话
	SessionHeader = "X-Checkout-Session"
	// DeviceHeader 设备级偏好（记住的 UID/服务器）的归属标识
	DeviceHeader = "X-Device-ID"

	ctxSessionID = "checkoutSession"
	ctxDeviceID  = "deviceID"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// CheckoutSessionMiddleware 解析或下发结账会话 ID
func CheckoutSessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader(SessionHeader)
		if sid == "" {
			sid = c.Query("session")
		}
		if sid == "" {
			sid = uuid.New().String()
		} else if !sessionIDPattern.MatchString(sid) {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid checkout session id")
			c.Abort()
			return
		}

		device := c.GetHeader(DeviceHeader)
		if device != "" && !sessionIDPattern.MatchString(device) {
			device = ""
		}

		c.Set(ctxSessionID, sid)
		c.Set(ctxDeviceID, device)
		c.Header(SessionHeader, sid)
		c.Next()
	}
}

// GetSessionID 当前结账会话
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

// PreferenceOwner 偏好归属：设备 > 用户 > 会话
func PreferenceOwner(c *gin.Context) string {
	if device := c.GetString(ctxDeviceID); device != "" {
		return device
	}
	if userID := GetUserID(c); userID != "" {
		return userID
	}
	return GetSessionID(c)
}
