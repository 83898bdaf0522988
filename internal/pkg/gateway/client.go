package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamevault/pkg/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

var (
	// ErrTimeout 请求在截止时间内未返回
	ErrTimeout = errors.New("upstream request timed out")
	// ErrUnavailable 网络错误或非 2xx 响应
	ErrUnavailable = errors.New("upstream service unavailable")
)

// StatusError 非 2xx 响应
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// Is 让 errors.Is(err, ErrUnavailable) 对所有非 2xx 成立
func (e *StatusError) Is(target error) bool {
	return target == ErrUnavailable
}

// FlexString 接受 JSON 字符串或数字（role_id / server_id 两种形式都会出现）
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Role 一个 UID 下的游戏角色
type Role struct {
	RoleID   FlexString `json:"roleId"`
	RoleName string     `json:"roleName"`
}

// CheckIDResponse 身份校验接口返回
type CheckIDResponse struct {
	Status   string `json:"status"`
	Username string `json:"username"`
	Roles    []Role `json:"roles"`
	Message  string `json:"message"`
}

// Server 动态服务器列表项
type Server struct {
	ID   FlexString `json:"server_id"`
	Name string     `json:"server_name"`
}

type serversResponse struct {
	Status  string   `json:"status"`
	Servers []Server `json:"servers"`
	Message string   `json:"message"`
}

// PayNowQR 支付二维码
type PayNowQR struct {
	QRCodeData      string `json:"qr_code_data"`
	ExpiryTimestamp int64  `json:"expiry_timestamp"` // unix 毫秒
	ReferenceID     string `json:"reference_id"`
}

// ExpiresAt 二维码过期时间
func (q *PayNowQR) ExpiresAt() time.Time {
	return time.UnixMilli(q.ExpiryTimestamp)
}

type createQRRequest struct {
	OrderID string      `json:"order_id"`
	Amount  json.Number `json:"amount"`
}

// Client 外部 API 客户端
type Client struct {
	http            *resty.Client
	identityTimeout time.Duration
}

// NewClient 创建客户端，identityTimeout 只作用于身份校验
func NewClient(baseURL string, requestTimeout, identityTimeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:            c,
		identityTimeout: identityTimeout,
	}
}

// CheckID 校验玩家 UID，server 可为空
func (c *Client) CheckID(ctx context.Context, game, uid, server string) (*CheckIDResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.identityTimeout)
	defer cancel()

	var out CheckIDResponse
	_, err := c.do(ctx, "check_id", c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"game": game, "uid": uid, "server": server}).
		SetResult(&out).
		ForceContentType("application/json"),
		"GET", "/check-id/{game}/{uid}/{server}")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetServers 拉取动态服务器列表
func (c *Client) GetServers(ctx context.Context, namespace string) ([]Server, error) {
	var out serversResponse
	_, err := c.do(ctx, "get_servers", c.http.R().
		SetContext(ctx).
		SetPathParam("ns", namespace).
		SetResult(&out).
		ForceContentType("application/json"),
		"GET", "/{ns}/get-servers")
	if err != nil {
		return nil, err
	}
	if out.Status != "success" {
		msg := out.Message
		if msg == "" {
			msg = "failed to fetch servers"
		}
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}
	return out.Servers, nil
}

// CreatePayNowQR 为订单申请 PayNow 二维码
func (c *Client) CreatePayNowQR(ctx context.Context, orderID string, amount decimal.Decimal) (*PayNowQR, error) {
	var out PayNowQR
	_, err := c.do(ctx, "create_qr", c.http.R().
		SetContext(ctx).
		SetBody(createQRRequest{OrderID: orderID, Amount: json.Number(amount.StringFixed(2))}).
		SetResult(&out).
		ForceContentType("application/json"),
		"POST", "/create-paynow-qr")
	if err != nil {
		return nil, err
	}
	if out.QRCodeData == "" || out.ExpiryTimestamp <= 0 {
		return nil, fmt.Errorf("%w: QR response is missing data", ErrUnavailable)
	}
	return &out, nil
}

// do 执行请求并统一错误语义：超时 -> ErrTimeout，其他失败 -> ErrUnavailable
func (c *Client) do(ctx context.Context, op string, req *resty.Request, method, url string) (*resty.Response, error) {
	start := time.Now()
	resp, err := req.Execute(method, url)

	status := "error"
	if resp != nil && resp.StatusCode() > 0 {
		status = fmt.Sprintf("%d", resp.StatusCode())
	}
	metrics.Default().RecordUpstream(op, status, time.Since(start))

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	return resp, nil
}
