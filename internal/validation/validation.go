// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"time"
	"unicode"
)

// DateLayout — формат даты доставки в запросах и ответах.
const DateLayout = "2006-01-02"

// IsValidZIP проверяет пятизначный почтовый индекс США.
func IsValidZIP(zip string) bool {
	if len(zip) != 5 {
		return false
	}
	for _, ch := range zip {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

// ParseDeliveryDate разбирает дату доставки в формате YYYY-MM-DD.
func ParseDeliveryDate(date string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsValidState проверяет двухбуквенный код штата.
func IsValidState(state string) bool {
	if len(state) != 2 {
		return false
	}
	for _, ch := range state {
		if !unicode.IsLetter(ch) || ch > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// IsValidCitySlug проверяет slug города: строчные латинские буквы, цифры и дефисы.
func IsValidCitySlug(city string) bool {
	if city == "" || len(city) > 64 {
		return false
	}
	if city[0] == '-' || city[len(city)-1] == '-' {
		return false
	}
	for _, ch := range city {
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= '0' && ch <= '9':
		case ch == '-':
		default:
			return false
		}
	}
	return true
}

// IsValidSKU проверяет код товара: непустой, без пробелов, не длиннее 64 символов.
func IsValidSKU(sku string) bool {
	if sku == "" || len(sku) > 64 {
		return false
	}
	return !strings.ContainsFunc(sku, unicode.IsSpace)
}
