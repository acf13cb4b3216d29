package ingest

import "strings"

// Field aliases map spreadsheet headers, English and Spanish, onto canonical
// field names. Headers are normalised (lowercase, trimmed, accents folded)
// before lookup.
var productAliases = map[string]string{
	"sku":              "sku",
	"codigo":           "sku",
	"code":             "sku",
	"referencia":       "sku",
	"name":             "name",
	"nombre":           "name",
	"producto":         "name",
	"product":          "name",
	"category":         "category",
	"categoria":        "category",
	"price":            "price",
	"precio":           "price",
	"precio venta":     "price",
	"sale price":       "price",
	"cost":             "cost",
	"costo":            "cost",
	"precio costo":     "cost",
	"stock":            "stock",
	"stock actual":     "stock",
	"cantidad":         "stock",
	"quantity":         "stock",
	"existencias":      "stock",
	"min stock":        "min_stock",
	"stock minimo":     "min_stock",
	"minimo":           "min_stock",
	"max stock":        "max_stock",
	"stock maximo":     "max_stock",
	"maximo":           "max_stock",
	"reorder point":    "reorder_point",
	"punto reorden":    "reorder_point",
	"punto de pedido":  "reorder_point",
}

var customerAliases = map[string]string{
	"name":       "name",
	"nombre":     "name",
	"cliente":    "name",
	"customer":   "name",
	"rut":        "tax_id",
	"tax id":     "tax_id",
	"nit":        "tax_id",
	"email":      "email",
	"correo":     "email",
	"phone":      "phone",
	"telefono":   "phone",
	"address":    "address",
	"direccion":  "address",
}

var saleAliases = map[string]string{
	"invoice":          "invoice_number",
	"invoice number":   "invoice_number",
	"factura":          "invoice_number",
	"numero factura":   "invoice_number",
	"customer":         "customer",
	"cliente":          "customer",
	"sku":              "sku",
	"codigo":           "sku",
	"product":          "sku",
	"producto":         "sku",
	"qty":              "qty",
	"quantity":         "qty",
	"cantidad":         "qty",
	"price":            "unit_price",
	"precio":           "unit_price",
	"unit price":       "unit_price",
	"precio unitario":  "unit_price",
	"date":             "date",
	"fecha":            "date",
	"total":            "total",
}

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u",
	"ñ", "n", "Ñ", "n", "ü", "u", "Ü", "u",
)

// NormalizeHeader folds a raw header to its lookup form.
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(accentFolder.Replace(h)))
	h = strings.ReplaceAll(h, "_", " ")
	h = strings.ReplaceAll(h, "-", " ")
	return strings.Join(strings.Fields(h), " ")
}

// MapHeaders resolves raw headers to canonical field names for an entity.
// Unknown headers map to "", callers skip those columns.
func MapHeaders(entity string, headers []string) []string {
	aliases := aliasTable(entity)
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = aliases[NormalizeHeader(h)]
	}
	return out
}

func aliasTable(entity string) map[string]string {
	switch entity {
	case EntityProducts:
		return productAliases
	case EntityCustomers:
		return customerAliases
	case EntitySales:
		return saleAliases
	default:
		return map[string]string{}
	}
}
