package catalog

import (
	"strings"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
)

type column int

const (
	colIgnored column = iota
	colName
	colCategory
	colSubcategory
	colEffect
	colIngredient
	colDescription
	colURL
	colCategoryURL
	colSubcategoryURL
	colImageURL
	colKeywords
	colPrice
)

// columnAliases maps lowercased header names to product fields. Both the
// shop export headers and the older English JSON keys are accepted.
var columnAliases = map[string]column{
	"商品名":          colName,
	"name":         colName,
	"product_name": colName,

	"カテゴリ名":    colCategory,
	"カテゴリ":     colCategory,
	"category": colCategory,

	"サブカテゴリ名":     colSubcategory,
	"サブカテゴリ":      colSubcategory,
	"subcategory": colSubcategory,

	"効果":      colEffect,
	"effect":  colEffect,
	"effects": colEffect,

	"有効成分":        colIngredient,
	"成分":          colIngredient,
	"ingredient":  colIngredient,
	"ingredients": colIngredient,

	"説明文":         colDescription,
	"説明":          colDescription,
	"description": colDescription,

	"商品url":       colURL,
	"url":         colURL,
	"product_url": colURL,

	"カテゴリurl":      colCategoryURL,
	"category_url": colCategoryURL,

	"サブカテゴリurl":       colSubcategoryURL,
	"subcategory_url": colSubcategoryURL,

	"image_url": colImageURL,
	"画像url":     colImageURL,
	"画像":        colImageURL,

	"検索キーワード":  colKeywords,
	"キーワード":    colKeywords,
	"keywords": colKeywords,

	"価格":    colPrice,
	"price": colPrice,
}

func lookupColumn(header string) column {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, bom)))
	return columnAliases[key]
}

// set stores value in the field for c. A field already holding a value is
// left alone so the first alias present wins.
func (c column) set(p *core.Product, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	var field *string
	switch c {
	case colName:
		field = &p.Name
	case colCategory:
		field = &p.Category
	case colSubcategory:
		field = &p.Subcategory
	case colEffect:
		field = &p.Effect
	case colIngredient:
		field = &p.Ingredient
	case colDescription:
		field = &p.Description
	case colURL:
		field = &p.URL
	case colCategoryURL:
		field = &p.CategoryURL
	case colSubcategoryURL:
		field = &p.SubcategoryURL
	case colImageURL:
		field = &p.ImageURL
	case colKeywords:
		field = &p.Keywords
	case colPrice:
		field = &p.Price
	default:
		return
	}
	if *field == "" {
		*field = value
	}
}
