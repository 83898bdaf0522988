package paynow

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const (
	maxNameLen      = 25
	maxReferenceLen = 25
)

// Params 动态 PayNow 二维码参数
type Params struct {
	UEN          string
	MerchantName string
	Amount       decimal.Decimal
	Reference    string
	Expiry       time.Time
	Editable     bool
}

// Payload 生成 SGQR (EMVCo) 字符串，末尾附 CRC16 校验
func Payload(p Params) string {
	editable := "0"
	if p.Editable {
		editable = "1"
	}

	merchant := tlv("00", "SG.PAYNOW") +
		tlv("01", "2") + // 代理类型：UEN
		tlv("02", p.UEN) +
		tlv("03", editable) +
		tlv("04", p.Expiry.Format("20060102"))

	var b strings.Builder
	b.WriteString(tlv("00", "01"))
	b.WriteString(tlv("01", "12")) // 动态码
	b.WriteString(tlv("26", merchant))
	b.WriteString(tlv("52", "0000"))
	b.WriteString(tlv("53", "702")) // SGD
	b.WriteString(tlv("54", p.Amount.StringFixed(2)))
	b.WriteString(tlv("58", "SG"))
	b.WriteString(tlv("59", truncate(p.MerchantName, maxNameLen)))
	b.WriteString(tlv("60", "Singapore"))
	b.WriteString(tlv("62", tlv("01", truncate(p.Reference, maxReferenceLen))))
	b.WriteString("6304")

	s := b.String()
	return s + fmt.Sprintf("%04X", crc16(s))
}

// DataURL 把字符串编码为 PNG 二维码 data URL，前端可直接作为 img src
func DataURL(payload string, size int) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// crc16 CRC-16/CCITT-FALSE
func crc16(data string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
