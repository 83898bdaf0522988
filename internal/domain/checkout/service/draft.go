package service

import (
	"strings"

	catalogModel "gamevault/internal/domain/catalog/model"
	"gamevault/internal/domain/checkout/model"
	"gamevault/internal/domain/pricing"

	"github.com/shopspring/decimal"
)

// draftProblems 提交前检查，返回给玩家看的提示；为空表示可以提交
func draftProblems(game *catalogModel.Game, d *model.Draft) []string {
	var problems []string
	if strings.TrimSpace(d.PlayerUID) == "" {
		problems = append(problems, "UID is required")
	}
	if d.Product == nil {
		problems = append(problems, "Product selection is required")
	}

	if game.APIValidationEnabled {
		if len(d.Roles) > 0 {
			if d.SelectedRoleID == "" {
				problems = append(problems, "Please select a character.")
			}
		} else if !identityConfirmed(d) {
			problems = append(problems, "User validation is pending or failed.")
		}
	}

	switch game.ServerRequirement().(type) {
	case catalogModel.ServerIDField:
		if d.Server.Value == "" {
			problems = append(problems, "Server/Zone ID is required")
		}
	case catalogModel.RegionChoice:
		if d.Server.Value == "" {
			problems = append(problems, "Server selection is required")
		}
	}
	return problems
}

// identityConfirmed 校验通过且昵称不是占位名
func identityConfirmed(d *model.Draft) bool {
	return d.IdentityStatus == model.IdentityValid && d.PlayerDisplayName != "" && !d.PlaceholderName
}

// draftProgress 完成度百分比
func draftProgress(game *catalogModel.Game, d *model.Draft) int {
	total, done := 2, 0
	if catalogModel.RequiresServer(game.ServerRequirement()) {
		total = 4
		if d.Server.Value != "" {
			done++
		}
		if identityConfirmed(d) {
			done++
		}
	} else if game.APIValidationEnabled {
		total = 3
		if identityConfirmed(d) {
			done++
		}
	}
	if d.PlayerUID != "" {
		done++
	}
	if d.Product != nil {
		done++
	}
	return (done*100 + total/2) / total
}

func couponRule(d *model.Draft) *pricing.CouponRule {
	if d.Coupon == nil {
		return nil
	}
	r := d.Coupon.Rule
	return &r
}

func draftSubtotal(d *model.Draft) decimal.Decimal {
	if d.Product == nil {
		return decimal.Zero
	}
	return d.Product.Price.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// dropIneligibleCoupon 小计低于最低消费时移除券，返回提示
func dropIneligibleCoupon(d *model.Draft) string {
	if d.Coupon == nil {
		return ""
	}
	if draftSubtotal(d).LessThan(d.Coupon.MinOrderValue) {
		msg := "Coupon " + d.Coupon.Code + " removed: Min spend S$" + d.Coupon.MinOrderValue.StringFixed(2) + " required."
		d.Coupon = nil
		return msg
	}
	return ""
}
