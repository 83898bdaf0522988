package paynow

import (
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SandboxOptions 本地模拟的外部 API
type SandboxOptions struct {
	UEN          string
	MerchantName string
	QRTTL        time.Duration
	Now          func() time.Time
}

type createQRRequest struct {
	OrderID string          `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// NewSandboxRouter 模拟身份校验、服务器列表与二维码接口，供本地联调
func NewSandboxRouter(opts SandboxOptions) *gin.Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.QRTTL <= 0 {
		opts.QRTTL = 10 * time.Minute
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/create-paynow-qr", func(c *gin.Context) {
		var req createQRRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.OrderID == "" || !req.Amount.IsPositive() {
			c.String(http.StatusBadRequest, "order_id and a positive amount are required")
			return
		}

		expiry := opts.Now().Add(opts.QRTTL)
		reference := "GV" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
		payload := Payload(Params{
			UEN:          opts.UEN,
			MerchantName: opts.MerchantName,
			Amount:       req.Amount,
			Reference:    reference,
			Expiry:       expiry,
		})
		image, err := DataURL(payload, 256)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR encoding failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"qr_code_data":     image,
			"expiry_timestamp": expiry.UnixMilli(),
			"reference_id":     reference,
		})
	})

	r.GET("/check-id/:game/:uid/*server", func(c *gin.Context) {
		uid := c.Param("uid")
		if len(uid) < 5 || strings.IndexFunc(uid, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
			c.JSON(http.StatusOK, gin.H{"status": "error", "message": "Invalid UID"})
			return
		}
		if strings.HasPrefix(uid, "9") {
			c.JSON(http.StatusOK, gin.H{
				"status": "success",
				"roles": []gin.H{
					{"roleId": 1001, "roleName": "Main-" + uid[len(uid)-4:]},
					{"roleId": 1002, "roleName": "Alt-" + uid[len(uid)-4:]},
				},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "username": "Player" + uid[len(uid)-4:]})
	})

	r.GET("/ro-origin/get-servers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"servers": []gin.H{
				{"server_id": 1, "server_name": "Prontera"},
				{"server_id": 2, "server_name": "Geffen"},
			},
		})
	})

	return r
}
