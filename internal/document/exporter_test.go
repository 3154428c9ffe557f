package document

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/orderdesk/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/orderdesk/internal/clientdirectory/domain"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder(t *testing.T) orderdomain.Order {
	t.Helper()
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	agg := orderdomain.NewAggregate(orderdomain.DefaultRules(), time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	require.NoError(t, agg.SelectClient(orderdomain.ClientRef{ID: node.Generate(), Type: clientdomain.ClientTypePartner, Name: "Mecânica Alfa"}))
	_, err = agg.AddCatalogLine(catalogdomain.Product{
		ID:            node.Generate(),
		Name:          "Gear Pump",
		Kind:          catalogdomain.KindProduct,
		WeightKg:      decimal.RequireFromString("1.0"),
		PriceStandard: decimal.RequireFromString("250.00"),
	}, 2)
	require.NoError(t, err)
	_, err = agg.AddManualLine("Installation visit", 1, decimal.RequireFromString("80.00"))
	require.NoError(t, err)
	agg.SetShippingMethod("sedex")
	require.NoError(t, agg.ApplyDiscountCode("DESCONTO10"))
	agg.SetAddress(orderdomain.Address{PostalCode: "01001-000", Street: "Praça da Sé", Number: "1", City: "São Paulo", State: "SP"})
	return agg.Snapshot()
}

func TestRender(t *testing.T) {
	order := sampleOrder(t)
	doc, err := NewExporter(nil).Render(context.Background(), order, Branding{
		SiteName: "Loja da Oficina",
		Address:  "Av. Paulista, 1000 - São Paulo/SP",
		Email:    "contato@oficina.example",
		LogoPath: "/nonexistent/logo.png",
	})
	require.NoError(t, err)

	assert.Equal(t, ContentTypePDF, doc.ContentType)
	assert.Equal(t, "loja-da-oficina-"+order.Number+".pdf", doc.FileName)
	assert.True(t, bytes.HasPrefix(doc.Bytes, []byte("%PDF")), "output is a PDF")
}

func TestRender_Errors(t *testing.T) {
	exporter := NewExporter(nil)

	_, err := exporter.Render(context.Background(), orderdomain.Order{}, Branding{SiteName: "Loja"})
	assert.ErrorIs(t, err, ErrMissingOrderNumber)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = exporter.Render(ctx, sampleOrder(t), Branding{SiteName: "Loja"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "pecas-sao-joao-PED-20261018-ABC123.pdf", FileName("Peças São João", "PED-20261018-ABC123"))
	assert.Equal(t, "pedido-PED-1.pdf", FileName("  ", "PED-1"))
}

func TestFormatBRL(t *testing.T) {
	cases := map[string]string{
		"0":         "R$ 0,00",
		"29.4":      "R$ 29,40",
		"229.40":    "R$ 229,40",
		"1234.56":   "R$ 1.234,56",
		"1234567.8": "R$ 1.234.567,80",
		"-50":       "-R$ 50,00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatBRL(decimal.RequireFromString(in)), in)
	}
}
