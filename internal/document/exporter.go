// Package document renders orders as downloadable PDF quotes.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"go.uber.org/zap"
)

const ContentTypePDF = "application/pdf"

var ErrMissingOrderNumber = errors.New("missing_order_number")

// Branding is the storefront identity printed on every document.
type Branding struct {
	SiteName string
	Address  string
	Phone    string
	Email    string
	LogoPath string
}

type Document struct {
	FileName    string
	ContentType string
	Bytes       []byte
}

type Exporter struct {
	log *zap.Logger
}

func NewExporter(log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{log: log.Named("document.exporter")}
}

// FileName is <slug(site name)>-<order number>.pdf.
func FileName(siteName, orderNumber string) string {
	prefix := slug.Make(siteName)
	if prefix == "" {
		prefix = "pedido"
	}
	return fmt.Sprintf("%s-%s.pdf", prefix, strings.TrimSpace(orderNumber))
}

// Render lays out order as a PDF. It reads order only.
func (e *Exporter) Render(ctx context.Context, order orderdomain.Order, branding Branding) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(order.Number) == "" {
		return nil, ErrMissingOrderNumber
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	e.header(m, branding)

	m.AddRow(10,
		text.NewCol(12, "Pedido "+order.Number, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(14,
		col.New(6).Add(
			text.New("Data: "+order.CreatedAt.Format("02/01/2006"), props.Text{Top: 0}),
			text.New("Status: "+string(order.Status), props.Text{Top: 4}),
			text.New("Tabela: "+string(order.Tier), props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Canal: "+order.Channel, props.Text{Top: 0}),
			text.New("Envio: "+shippingLabel(order.ShippingMethod), props.Text{Top: 4}),
		),
	)

	clientName := "-"
	if order.Client != nil && strings.TrimSpace(order.Client.Name) != "" {
		clientName = order.Client.Name
	}
	m.AddRow(30,
		col.New(6).Add(
			text.New("Cliente", props.Text{Style: fontstyle.Bold}),
			text.New(clientName, props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New("Entrega", props.Text{Style: fontstyle.Bold}),
			text.New(streetLine(order.Address), props.Text{Top: 5}),
			text.New(cityLine(order.Address), props.Text{Top: 10}),
			text.New(formatPostalCode(order.Address.PostalCode), props.Text{Top: 15}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Descrição", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qtd", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unitário", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Valor", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range order.Lines {
		m.AddRow(8,
			text.NewCol(6, line.Description(), props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", line.Quantity()), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatBRL(line.UnitPrice()), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatBRL(line.Amount()), props.Text{Size: 9, Align: align.Right}),
		)
	}

	totalRow(m, "Subtotal", order.Subtotal, false)
	totalRow(m, "Frete", order.ShippingCost, false)
	if !order.InsuranceCost.IsZero() {
		totalRow(m, "Seguro", order.InsuranceCost, false)
	}
	if !order.DiscountAmount.IsZero() {
		label := "Desconto"
		if order.DiscountCode != "" {
			label += " (" + order.DiscountCode + ")"
		}
		totalRow(m, label, order.DiscountAmount.Neg(), false)
	}
	totalRow(m, "Total", order.Total, true)

	doc, err := m.Generate()
	if err != nil {
		e.log.Error("render failed", zap.String("order_number", order.Number), zap.Error(err))
		return nil, err
	}

	return &Document{
		FileName:    FileName(branding.SiteName, order.Number),
		ContentType: ContentTypePDF,
		Bytes:       doc.GetBytes(),
	}, nil
}

func (e *Exporter) header(m core.Maroto, b Branding) {
	contact := strings.Join(nonEmpty(b.Phone, b.Email), " · ")
	info := col.New(9).Add(
		text.New(b.SiteName, props.Text{Size: 14, Style: fontstyle.Bold}),
		text.New(b.Address, props.Text{Top: 7, Size: 9}),
		text.New(contact, props.Text{Top: 12, Size: 9}),
	)

	logo := strings.TrimSpace(b.LogoPath)
	if logo != "" {
		if _, err := os.Stat(logo); err != nil {
			e.log.Warn("logo not readable, rendering without it", zap.String("path", logo), zap.Error(err))
			logo = ""
		}
	}
	if logo == "" {
		m.AddRow(22, info, col.New(3))
		return
	}
	m.AddRow(22,
		info,
		image.NewFromFileCol(3, logo, props.Rect{Center: false, Percent: 80}),
	)
}

func totalRow(m core.Maroto, label string, amount decimal.Decimal, bold bool) {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, label, props.Text{Size: 9, Style: style}),
		text.NewCol(2, FormatBRL(amount), props.Text{Size: 9, Style: style, Align: align.Right}),
	)
}

func shippingLabel(method string) string {
	if strings.TrimSpace(method) == "" {
		return "-"
	}
	return method
}

func streetLine(a orderdomain.Address) string {
	parts := nonEmpty(a.Street, a.Number, a.Complement)
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func cityLine(a orderdomain.Address) string {
	city := strings.Join(nonEmpty(a.City, a.State), "/")
	return strings.Join(nonEmpty(a.Neighborhood, city), " - ")
}

func formatPostalCode(code string) string {
	if len(code) != 8 {
		return code
	}
	return code[:5] + "-" + code[5:]
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FormatBRL renders amount as "R$ 1.234,56".
func FormatBRL(amount decimal.Decimal) string {
	sign := ""
	if amount.Sign() < 0 {
		sign = "-"
		amount = amount.Neg()
	}
	fixed := amount.StringFixed(2)
	whole, cents, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "R$ " + b.String() + "," + cents
}
