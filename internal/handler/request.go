package handler

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"sweetshop/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const (
	msgNotNull      = "This field may not be null."
	msgNotString    = "Not a valid string."
	msgNotInteger   = "A valid integer is required."
	msgNotNumber    = "A valid number is required."
	msgRequiredBody = "This field is required."
)

// ボディをキーごとに読む（送られたかどうかを区別するため）
func decodeObject(c echo.Context) (map[string]json.RawMessage, map[string]string) {
	raw := map[string]json.RawMessage{}
	dec := json.NewDecoder(c.Request().Body)
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return nil, map[string]string{"non_field_errors": "Invalid JSON body."}
	}
	return raw, nil
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}

// 作成/更新の入力に変換。型が違う項目はfieldsに入れる。
func parseSweetFields(raw map[string]json.RawMessage) (usecase.SweetFields, map[string]string) {
	var f usecase.SweetFields
	fields := map[string]string{}

	if v, ok := raw["name"]; ok {
		s, msg := parseString(v)
		if msg != "" {
			fields["name"] = msg
		} else {
			f.Name = &s
		}
	}

	if v, ok := raw["category"]; ok {
		s, msg := parseString(v)
		if msg != "" {
			fields["category"] = msg
		} else {
			f.Category = &s
		}
	}

	if v, ok := raw["price"]; ok {
		if isNull(v) {
			fields["price"] = msgNotNull
		} else {
			var d decimal.Decimal
			if err := d.UnmarshalJSON(v); err != nil {
				fields["price"] = msgNotNumber
			} else {
				f.Price = &d
			}
		}
	}

	if v, ok := raw["quantity"]; ok {
		n, msg := parseInt(v)
		if msg != "" {
			fields["quantity"] = msg
		} else {
			f.Quantity = &n
		}
	}

	if v, ok := raw["description"]; ok {
		f.HasDescription = true
		if !isNull(v) {
			s, msg := parseString(v)
			if msg != "" {
				fields["description"] = msg
			} else {
				f.Description = &s
			}
		}
	}

	return f, fields
}

// purchase/restock の amount（必須・整数）
func parseAmount(raw map[string]json.RawMessage) (int64, map[string]string) {
	v, ok := raw["amount"]
	if !ok {
		return 0, map[string]string{"amount": msgRequiredBody}
	}
	n, msg := parseInt(v)
	if msg != "" {
		return 0, map[string]string{"amount": msg}
	}
	return n, nil
}

func parseString(v json.RawMessage) (string, string) {
	if isNull(v) {
		return "", msgNotNull
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", msgNotString
	}
	return s, ""
}

// 数値か数字の文字列を受け付ける
func parseInt(v json.RawMessage) (int64, string) {
	if isNull(v) {
		return 0, msgNotNull
	}
	var n int64
	if err := json.Unmarshal(v, &n); err == nil {
		return n, ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n, ""
		}
	}
	return 0, msgNotInteger
}
