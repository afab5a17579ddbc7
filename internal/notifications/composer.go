package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vitora-backend/internal/orders"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/mailer"
)

const missingValue = "—"

// Confirmation is everything needed to tell a customer their order is paid.
type Confirmation struct {
	Order       models.Order
	Customer    *models.Customer
	Transaction *models.Transaction
}

// Composer renders the order confirmation message.
type Composer struct {
	brand   string
	website string
	html    *template.Template
}

func NewComposer(brand, website string) *Composer {
	if strings.TrimSpace(brand) == "" {
		brand = "VITORA"
	}
	return &Composer{
		brand:   brand,
		website: website,
		html:    template.Must(template.New("order-confirmation").Parse(confirmationHTML)),
	}
}

type itemView struct {
	Name     string
	Quantity int64
	Subtotal string
}

type confirmationView struct {
	Brand      string
	Website    string
	Reference  string
	Items      []itemView
	Subtotal   string
	Total      string
	Name       string
	IDNumber   string
	Phone      string
	Email      string
	Address    string
	City       string
	Department string
	Notes      string
}

// Compose builds the subject and both bodies. Recipients are filled by the
// sender.
func (c *Composer) Compose(conf Confirmation) (mailer.Message, error) {
	view := c.view(conf)

	var html bytes.Buffer
	if err := c.html.Execute(&html, view); err != nil {
		return mailer.Message{}, fmt.Errorf("render confirmation: %w", err)
	}
	return mailer.Message{
		Subject: fmt.Sprintf("Pedido %s confirmado - Pago aprobado", view.Reference),
		Text:    c.text(view),
		HTML:    html.String(),
	}, nil
}

func (c *Composer) view(conf Confirmation) confirmationView {
	items := orders.ParseLineItems(conf.Order.LineItems)
	subtotal := decimal.Zero
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		line := item.Subtotal()
		subtotal = subtotal.Add(line)
		views = append(views, itemView{Name: item.Name, Quantity: item.Quantity, Subtotal: FormatCOP(line)})
	}

	total := subtotal
	reference := conf.Order.ID.String()
	if conf.Transaction != nil {
		reference = fmt.Sprintf("%d", conf.Transaction.Reference)
		total = conf.Transaction.Amount
	}

	view := confirmationView{
		Brand:      c.brand,
		Website:    c.website,
		Reference:  reference,
		Items:      views,
		Subtotal:   FormatCOP(subtotal),
		Total:      FormatCOP(total),
		Name:       missingValue,
		IDNumber:   missingValue,
		Phone:      missingValue,
		Email:      missingValue,
		Address:    orDash(conf.Order.ShippingAddress),
		City:       orDash(conf.Order.City),
		Department: orDash(conf.Order.Department),
		Notes:      missingValue,
	}
	if conf.Order.Notes != nil {
		view.Notes = orDash(*conf.Order.Notes)
	}
	if conf.Customer != nil {
		view.Name = orDash(conf.Customer.FullName)
		view.IDNumber = orDash(conf.Customer.Identification)
		if conf.Customer.Phone != nil {
			view.Phone = orDash(*conf.Customer.Phone)
		}
		if conf.Customer.Email != nil {
			view.Email = orDash(*conf.Customer.Email)
		}
	}
	return view
}

func (c *Composer) text(v confirmationView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "¡Gracias por tu pedido en %s!\n", v.Brand)
	fmt.Fprintf(&b, "Referencia de pedido: #%s\n\n", v.Reference)
	b.WriteString("Artículos:\n")
	for _, item := range v.Items {
		fmt.Fprintf(&b, "- %d x %s: %s\n", item.Quantity, item.Name, item.Subtotal)
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", v.Subtotal)
	fmt.Fprintf(&b, "Total: %s\n\n", v.Total)
	b.WriteString("Datos de Envío\n")
	fmt.Fprintf(&b, "- Nombre: %s\n", v.Name)
	fmt.Fprintf(&b, "- Identificación: %s\n", v.IDNumber)
	fmt.Fprintf(&b, "- Teléfono: %s\n", v.Phone)
	fmt.Fprintf(&b, "- Email: %s\n", v.Email)
	fmt.Fprintf(&b, "- Dirección: %s\n", v.Address)
	fmt.Fprintf(&b, "- Ciudad: %s\n", v.City)
	fmt.Fprintf(&b, "- Departamento: %s\n", v.Department)
	fmt.Fprintf(&b, "- Notas de envío: %s\n\n", v.Notes)
	b.WriteString("Te avisaremos cuando tu pedido sea despachado.\n")
	if v.Website != "" {
		fmt.Fprintf(&b, "Visítanos: %s\n", v.Website)
	}
	return b.String()
}

// FormatCOP renders an amount as Colombian pesos without decimals, e.g.
// $150.000.
func FormatCOP(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	digits := rounded.StringFixed(0)
	var grouped strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	return sign + "$" + grouped.String()
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return missingValue
	}
	return strings.TrimSpace(value)
}

const confirmationHTML = `<div style="font-family: system-ui, sans-serif, Arial; font-size: 14px; color: #333; padding: 14px 8px; background-color: #f5f5f5;">
  <div style="max-width: 600px; margin: auto; background-color: #fff">
    <div style="border-top: 6px solid #458500; padding: 16px">
      <strong>¡Gracias por tu pedido!</strong>
    </div>
    <div style="padding: 0 16px">
      <p>Te estaremos informando cuando tu pedido sea enviado.</p>
      <p><strong>La referencia de tu pedido es: #{{.Reference}}</strong></p>
      <table style="width: 100%; border-collapse: collapse">
        {{range .Items}}<tr>
          <td style="padding: 8px">{{.Name}}<br /><span style="color: #888">Cantidad: {{.Quantity}}</span></td>
          <td style="padding: 8px; white-space: nowrap"><strong>{{.Subtotal}}</strong></td>
        </tr>{{end}}
      </table>
      <p style="text-align: right"><strong>Costo total {{.Total}}</strong></p>
    </div>
    <div style="padding: 16px; border-top: 2px solid #333">
      <h3 style="font-size: 16px">Datos de Envío</h3>
      <table style="width: 100%; border-collapse: collapse">
        <tr><td><strong>Nombre:</strong></td><td>{{.Name}}</td></tr>
        <tr><td><strong>Identificación:</strong></td><td>{{.IDNumber}}</td></tr>
        <tr><td><strong>Teléfono:</strong></td><td>{{.Phone}}</td></tr>
        <tr><td><strong>Email:</strong></td><td>{{.Email}}</td></tr>
        <tr><td><strong>Dirección:</strong></td><td>{{.Address}}</td></tr>
        <tr><td><strong>Ciudad:</strong></td><td>{{.City}}</td></tr>
        <tr><td><strong>Departamento:</strong></td><td>{{.Department}}</td></tr>
        <tr><td><strong>Notas de envío:</strong></td><td>{{.Notes}}</td></tr>
      </table>
    </div>
  </div>
  <div style="max-width: 600px; margin: auto">
    <p style="color: #999">Este correo fue enviado a {{.Email}}<br />Recibes este correo por tu compra en {{.Brand}}.</p>
  </div>
</div>`
