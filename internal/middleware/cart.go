// Package middleware содержит HTTP middleware витрины: идентификация корзины по cookie,
// ограничение частоты запросов, журнал запросов и сжатие.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmeshcher/florist-storefront/internal/model"
)

type contextKey string

const identityKey contextKey = "cartIdentity"

const (
	// CartIDCookie хранит идентификатор корзины.
	CartIDCookie = "flo_cart_id"
	// MockCartCookie хранит документ mock-корзины и остаётся доступным скриптам страницы.
	MockCartCookie = "flo_mock_cart"

	cartCookieMaxAge = 7 * 24 * 60 * 60
)

// Identity описывает состояние корзины, пришедшее в cookie запроса.
type Identity struct {
	CartID string
	Mock   model.MockCart
}

// HasCart сообщает, что клиент предъявил идентификатор корзины.
func (i Identity) HasCart() bool {
	return i.CartID != ""
}

// CartIdentity читает cookie корзины и кладёт Identity в контекст запроса.
// Повреждённый документ mock-корзины превращается в пустую корзину.
func CartIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			CartID: CartID(r),
			Mock:   MockPayload(r),
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext извлекает Identity из контекста запроса.
func IdentityFromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Identity{Mock: model.EmptyMockCart()}
	}
	return id
}

// CartID возвращает идентификатор корзины из cookie или пустую строку.
func CartID(r *http.Request) string {
	c, err := r.Cookie(CartIDCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

// MockPayload возвращает документ mock-корзины; при отсутствии cookie корзина пуста.
func MockPayload(r *http.Request) model.MockCart {
	c, err := r.Cookie(MockCartCookie)
	if err != nil {
		return model.EmptyMockCart()
	}
	return model.DecodeMockCart(c.Value)
}

// SetCartCookies выставляет обе cookie корзины. Их нужно отправлять вместе на каждое изменение:
// пропущенная cookie теряет состояние на следующем запросе.
func SetCartCookies(w http.ResponseWriter, r *http.Request, cartID string, payload model.MockCart) error {
	encoded, err := payload.Encode()
	if err != nil {
		return err
	}
	secure := isHTTPS(r)
	http.SetCookie(w, &http.Cookie{
		Name:     CartIDCookie,
		Value:    cartID,
		Path:     "/",
		MaxAge:   cartCookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     MockCartCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   cartCookieMaxAge,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCartCookies удаляет обе cookie корзины.
func ClearCartCookies(w http.ResponseWriter, r *http.Request) {
	secure := isHTTPS(r)
	for _, name := range []string{CartIDCookie, MockCartCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == CartIDCookie,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
