// Package catalog loads the product catalog from CSV, JSON or NDJSON files
// and renders the document text that is embedded for each product.
//
// Column names follow the shop's export (商品名, カテゴリ名, 有効成分, ...)
// with English aliases. Product identity is the name: the first row with a
// given name wins and later duplicates are dropped. CatalogOrder records the
// 0-based source row and is the stable tie-break for ranking.
package catalog
