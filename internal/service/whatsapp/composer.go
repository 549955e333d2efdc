package whatsapp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/evergreenattire/checkout/internal/domain"
)

// deepLinkBase — фиксированный префикс deep-link'а WhatsApp; доставкой
// сообщения занимается сам пользователь, открывая ссылку.
const deepLinkBase = "https://wa.me/"

// Composer собирает текст исходящего сообщения и deep-link по снимку заказа.
// Состояния у компоновщика нет: один и тот же заказ всегда даёт байт-в-байт
// одинаковый результат, поэтому повторная отправка безопасна.
type Composer struct {
	phone string
}

// NewComposer создаёт компоновщик для номера получателя магазина.
func NewComposer(phone string) *Composer {
	return &Composer{phone: strings.TrimPrefix(phone, "+")}
}

// Compose рендерит человекочитаемую сводку заказа: номер, позиции, итог,
// доставка и оплата. Использует только неизменяемые поля заказа.
func (c *Composer) Compose(order domain.Order) string {
	var b strings.Builder

	b.WriteString("New order ")
	b.WriteString(order.Number)
	b.WriteString("\n\n")

	for i, item := range order.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Name)
		fmt.Fprintf(&b, "   %d x %s = %s\n", item.Qty,
			formatMinor(item.PriceMinor), formatMinor(item.LineTotalMinor))
	}

	b.WriteString("\nTotal: ")
	b.WriteString(formatMinor(order.TotalMinor))
	b.WriteString("\n\nShipping address: ")
	b.WriteString(order.ShippingAddress)
	b.WriteString("\nPayment method: ")
	b.WriteString(order.PaymentMethod)
	if order.Notes != "" {
		b.WriteString("\nNotes: ")
		b.WriteString(order.Notes)
	}

	return b.String()
}

// Link возвращает deep-link с URL-кодированным текстом сообщения.
func (c *Composer) Link(message string) string {
	return deepLinkBase + c.phone + "?text=" + url.QueryEscape(message)
}

// ComposeLink — Compose и Link одним вызовом.
func (c *Composer) ComposeLink(order domain.Order) (message, link string) {
	message = c.Compose(order)
	return message, c.Link(message)
}

// formatMinor печатает сумму в минимальных денежных единицах как есть,
// без разделителей: формат должен оставаться стабильным между версиями,
// иначе resend перестанет совпадать с сохранённым сообщением.
func formatMinor(amount int64) string {
	return strconv.FormatInt(amount, 10)
}
