package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	catalogModel "gamevault/internal/domain/catalog/model"
	"gamevault/internal/pkg/gateway"
	"gamevault/pkg/logger"
	"gamevault/pkg/metrics"

	"go.uber.org/zap"
)

var (
	ErrUIDRequired        = errors.New("UID is required")
	ErrServerRequired     = errors.New("Please select a server")
	ErrValidationTimeout  = errors.New("Validation timed out. Please double-check UID.")
	ErrValidationRejected = errors.New("Invalid details provided.")
	ErrNetworkUnavailable = errors.New("Service unavailable")
	ErrNoUsername         = errors.New("Validation successful but no username found.")
)

// RejectedError 校验接口明确拒绝，Message 为接口返回的原因
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

func (e *RejectedError) Is(target error) bool { return target == ErrValidationRejected }

// UnavailableError 网络错误或非 2xx
type UnavailableError struct {
	StatusCode int
}

func (e *UnavailableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("Service unavailable (%d)", e.StatusCode)
	}
	return "Service unavailable. Please check your connection."
}

func (e *UnavailableError) Is(target error) bool { return target == ErrNetworkUnavailable }

// Role 一个 UID 下的角色
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Result 校验结果。Roles 多于一个时需要玩家选择，DisplayName 为空
type Result struct {
	DisplayName string `json:"displayName,omitempty"`
	RoleID      string `json:"roleId,omitempty"`
	Roles       []Role `json:"roles,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// NeedsSelection 是否需要玩家选角色
func (r *Result) NeedsSelection() bool {
	return len(r.Roles) > 1
}

// Checker 身份校验接口
type Checker interface {
	CheckID(ctx context.Context, game, uid, server string) (*gateway.CheckIDResponse, error)
}

type Validator interface {
	// NeedsLookup 是否需要调用远程接口（否则 Validate 会立即返回）
	NeedsLookup(game *catalogModel.Game, uid, server string) bool
	Validate(ctx context.Context, game *catalogModel.Game, uid, server string) (*Result, error)
}

type validator struct {
	checker Checker
}

func NewValidator(checker Checker) Validator {
	return &validator{checker: checker}
}

func (v *validator) NeedsLookup(game *catalogModel.Game, uid, server string) bool {
	uid = strings.TrimSpace(uid)
	if uid == "" || !game.APIValidationEnabled {
		return false
	}
	return !catalogModel.RequiresServer(game.ServerRequirement()) || strings.TrimSpace(server) != ""
}

// Validate 校验玩家身份。空 UID、缺服务器、未开启校验时不发请求
func (v *validator) Validate(ctx context.Context, game *catalogModel.Game, uid, server string) (*Result, error) {
	uid = strings.TrimSpace(uid)
	server = strings.TrimSpace(server)

	if uid == "" {
		return nil, ErrUIDRequired
	}
	if catalogModel.RequiresServer(game.ServerRequirement()) && server == "" {
		return nil, ErrServerRequired
	}
	if !game.APIValidationEnabled {
		return &Result{DisplayName: placeholderName(uid), Placeholder: true}, nil
	}

	key := catalogModel.CanonicalKey(game.GameKey)
	resp, err := v.checker.CheckID(ctx, key, uid, server)
	if err != nil {
		outcome, mapped := mapError(err)
		metrics.Default().RecordIdentityCheck(key, outcome)
		logger.Log.Warn("Identity check failed", zap.String("game", key), zap.String("outcome", outcome), zap.Error(err))
		return nil, mapped
	}

	if resp.Status != "success" {
		metrics.Default().RecordIdentityCheck(key, "rejected")
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = ErrValidationRejected.Error()
		}
		return nil, &RejectedError{Message: msg}
	}

	if len(resp.Roles) > 1 {
		metrics.Default().RecordIdentityCheck(key, "roles")
		roles := make([]Role, len(resp.Roles))
		for i, r := range resp.Roles {
			roles[i] = Role{ID: string(r.RoleID), Name: r.RoleName}
		}
		return &Result{Roles: roles}, nil
	}

	if len(resp.Roles) == 1 {
		metrics.Default().RecordIdentityCheck(key, "success")
		r := resp.Roles[0]
		return &Result{DisplayName: r.RoleName, RoleID: string(r.RoleID)}, nil
	}

	if resp.Username == "" {
		metrics.Default().RecordIdentityCheck(key, "no_username")
		return nil, ErrNoUsername
	}

	metrics.Default().RecordIdentityCheck(key, "success")
	return &Result{DisplayName: resp.Username}, nil
}

func mapError(err error) (string, error) {
	if errors.Is(err, gateway.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout", ErrValidationTimeout
	}
	var statusErr *gateway.StatusError
	if errors.As(err, &statusErr) {
		return "http_error", &UnavailableError{StatusCode: statusErr.StatusCode}
	}
	return "network", &UnavailableError{}
}

// placeholderName 未开启校验的游戏显示 "User-<UID 后四位>"
func placeholderName(uid string) string {
	if len(uid) > 4 {
		uid = uid[len(uid)-4:]
	}
	return "User-" + uid
}
