package helpers

import (
	"fmt"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/text/currency"
)

func ParserTokenUnverified(tokenStr string) (jwt.MapClaims, bool) {
	var p jwt.Parser
	token, _, ok := p.ParseUnverified(tokenStr, jwt.MapClaims{})
	if ok != nil {
		return nil, false
	}
	tokendata, _ := token.Claims.(jwt.MapClaims)
	return tokendata, true
}

func Contains(a []int, x int) bool {
	for _, n := range a {
		if x == n {
			return true
		}
	}
	return false
}

// CurrencyExponent returns the number of subunit digits for an ISO 4217 code.
// JPY has none, so an amount in smallest-unit semantics is already whole yen.
// Unknown codes fall back to 2.
func CurrencyExponent(code string) int {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// FormatAmount renders a smallest-currency-unit amount for receipts and
// processor notes, e.g. 5000 USD -> "50.00 USD", 5000 JPY -> "5000 JPY".
func FormatAmount(amount int64, code string) string {
	exp := CurrencyExponent(code)
	if exp <= 0 {
		return fmt.Sprintf("%d %s", amount, code)
	}

	div := int64(1)
	for i := 0; i < exp; i++ {
		div *= 10
	}

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	return fmt.Sprintf("%s%d.%0*d %s", sign, amount/div, exp, amount%div, code)
}
