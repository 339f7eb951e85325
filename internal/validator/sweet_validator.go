package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"sweetshop/internal/usecase"

	"github.com/shopspring/decimal"
)

const (
	msgRequired = "This field is required."

	maxNameLen     = 200
	maxCategoryLen = 100
)

// numeric(10,2) に収まる最大値
var maxPrice = decimal.RequireFromString("99999999.99")

type sweetValidator struct{}

func NewSweetValidator() usecase.SweetValidator {
	return &sweetValidator{}
}

// 作成/更新の入力を検証。partialなら送られた項目だけ見る。
func (v *sweetValidator) ValidateSweet(f usecase.SweetFields, partial bool) map[string]string {
	fields := map[string]string{}

	if f.Name != nil {
		if msg := checkText(*f.Name, maxNameLen); msg != "" {
			fields["name"] = msg
		}
	} else if !partial {
		fields["name"] = msgRequired
	}

	if f.Category != nil {
		if msg := checkText(*f.Category, maxCategoryLen); msg != "" {
			fields["category"] = msg
		}
	} else if !partial {
		fields["category"] = msgRequired
	}

	if f.Price != nil {
		if msg := checkPrice(*f.Price); msg != "" {
			fields["price"] = msg
		}
	} else if !partial {
		fields["price"] = msgRequired
	}

	if f.Quantity != nil {
		if *f.Quantity < 0 {
			fields["quantity"] = "Ensure this value is greater than or equal to 0."
		}
	} else if !partial {
		fields["quantity"] = msgRequired
	}

	return fields
}

func checkText(s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "This field may not be blank."
	}
	if utf8.RuneCountInString(s) > max {
		return fmt.Sprintf("Ensure this field has no more than %d characters.", max)
	}
	return ""
}

// 0より大きく、小数点以下2桁まで
func checkPrice(p decimal.Decimal) string {
	if !p.IsPositive() {
		return "Ensure this value is greater than or equal to 0.01."
	}
	if !p.Equal(p.Truncate(2)) {
		return "Ensure that there are no more than 2 decimal places."
	}
	if p.GreaterThan(maxPrice) {
		return "Ensure that there are no more than 10 digits in total."
	}
	return ""
}
