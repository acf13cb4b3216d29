package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	require.Equal(t, "codigo", NormalizeHeader("  Código "))
	require.Equal(t, "stock minimo", NormalizeHeader("Stock_Mínimo"))
	require.Equal(t, "precio venta", NormalizeHeader("PRECIO-VENTA"))
	require.Equal(t, "min stock", NormalizeHeader("min   stock"))
}

func TestMapHeadersSynonyms(t *testing.T) {
	// Spanish and English headers resolve to the same canonical fields.
	spanish := MapHeaders(EntityProducts, []string{"Código", "Nombre", "Precio Venta", "Stock Mínimo"})
	english := MapHeaders(EntityProducts, []string{"SKU", "Name", "Sale Price", "Min Stock"})
	require.Equal(t, []string{"sku", "name", "price", "min_stock"}, spanish)
	require.Equal(t, spanish, english)
}

func TestMapHeadersUnknownColumn(t *testing.T) {
	got := MapHeaders(EntityCustomers, []string{"Cliente", "Warehouse Zone", "RUT"})
	require.Equal(t, []string{"name", "", "tax_id"}, got)
}

func TestMapHeadersSalesEntity(t *testing.T) {
	got := MapHeaders(EntitySales, []string{"Factura", "Cliente", "Producto", "Cantidad", "Precio Unitario", "Fecha"})
	require.Equal(t, []string{"invoice_number", "customer", "sku", "qty", "unit_price", "date"}, got)
}
