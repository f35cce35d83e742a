// Package graphql exposes a read-only GraphQL view of the catalog.
package graphql

import (
	"errors"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/tagcatalog/app/models"
	"github.com/shashiranjanraj/tagcatalog/app/repositories"
	"github.com/shashiranjanraj/tagcatalog/app/services"
	gql "github.com/shashiranjanraj/tagcatalog/pkg/graphql"
)

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"article": &graphql.Field{Type: graphql.String},
		"colour":  &graphql.Field{Type: graphql.String},
		"size":    &graphql.Field{Type: graphql.String},
		"pair":    &graphql.Field{Type: graphql.String},
		"price": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if prod, ok := p.Source.(models.Product); ok && prod.Price.Valid {
					return prod.Price.Decimal.StringFixed(2), nil
				}
				return nil, nil
			},
		},
		"image_url": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if prod, ok := p.Source.(models.Product); ok {
					return prod.ImageURL, nil
				}
				return nil, nil
			},
		},
		"created_at": &graphql.Field{
			Type: graphql.DateTime,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if prod, ok := p.Source.(models.Product); ok {
					return prod.CreatedAt, nil
				}
				return nil, nil
			},
		},
	},
})

// Query builds the root query type: products(filters) and product(id).
func Query(products *services.ProductService) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"article": &graphql.ArgumentConfig{Type: graphql.String},
					"colour":  &graphql.ArgumentConfig{Type: graphql.String},
					"size":    &graphql.ArgumentConfig{Type: graphql.String},
					"q":       &graphql.ArgumentConfig{Type: graphql.String},
					"page":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 15},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f := repositories.ProductFilter{
						Article: stringArg(p.Args, "article"),
						Colour:  stringArg(p.Args, "colour"),
						Size:    stringArg(p.Args, "size"),
						Q:       stringArg(p.Args, "q"),
						Page:    intArg(p.Args, "page"),
						Limit:   intArg(p.Args, "limit"),
					}
					page, err := products.List(p.Context, f)
					if err != nil {
						return nil, err
					}
					return page.Items, nil
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := intArg(p.Args, "id")
					if id < 1 {
						return nil, nil
					}
					prod, err := products.Find(p.Context, uint(id))
					if errors.Is(err, repositories.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return *prod, nil
				},
			},
		},
	})
}

// Schema is the catalog schema ready for gql.Handler.
func Schema(products *services.ProductService) (graphql.Schema, error) {
	return gql.NewSchema(Query(products))
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]interface{}, key string) int {
	n, _ := args[key].(int)
	return n
}
