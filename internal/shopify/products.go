package shopify

import (
	"context"
	"encoding/json"
	"fmt"

	"bggsync/internal"
	"bggsync/internal/util"
)

const productsQuery = `query catalogPage($first: Int!, $after: String, $query: String, $metafieldNamespace: String!, $metafieldKey: String!) {
  products(first: $first, after: $after, query: $query) {
    edges {
      node {
        id
        handle
        totalInventory
        priceRangeV2 { minVariantPrice { amount } }
        metafield(namespace: $metafieldNamespace, key: $metafieldKey) { value }
        variants(first: 1) { edges { node { barcode } } }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

type productsPayload struct {
	Products struct {
		Edges []struct {
			Node productNode `json:"node"`
		} `json:"edges"`
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
	} `json:"products"`
}

type productNode struct {
	ID             string `json:"id"`
	Handle         string `json:"handle"`
	TotalInventory int    `json:"totalInventory"`
	PriceRangeV2   struct {
		MinVariantPrice struct {
			Amount string `json:"amount"`
		} `json:"minVariantPrice"`
	} `json:"priceRangeV2"`
	Metafield *struct {
		Value string `json:"value"`
	} `json:"metafield"`
	Variants struct {
		Edges []struct {
			Node struct {
				Barcode *string `json:"barcode"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

// catalogFilter is the remote predicate: active products in the allow-listed
// board game types/tags, minus anything already flagged for manual review.
func (c *Client) catalogFilter() string {
	return "status:Active AND ((product_type:'Board Game') OR (product_type:'Board Games')" +
		" OR (product_type:'Card Game') OR (product_type:'Dice Game')" +
		" OR (product_type:'Non-Collectible Card Games')" +
		" OR (tag:boardgame OR (tag:rpg AND -tag:rpg dice sets) OR tag:miniatures))" +
		" AND -tag:" + c.cfg.ManualReviewTag
}

// FetchAllProducts walks the cursor pagination to exhaustion and returns the
// shaped catalog in page order. Any page failure aborts the fetch, since a
// partial catalog cannot be reconciled.
func (c *Client) FetchAllProducts(ctx context.Context) ([]internal.Product, error) {
	var all []internal.Product
	seen := map[string]struct{}{}
	var after string

	for {
		variables := map[string]any{
			"first":              c.cfg.PageSize,
			"query":              c.catalogFilter(),
			"metafieldNamespace": c.cfg.MetafieldNS,
			"metafieldKey":       c.cfg.MetafieldKey,
		}
		if after != "" {
			variables["after"] = after
		}

		data, err := c.query(ctx, productsQuery, variables)
		if err != nil {
			return nil, fmt.Errorf("fetch products page: %w", err)
		}

		var payload productsPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode products page: %w", err)
		}

		for _, edge := range payload.Products.Edges {
			all = append(all, shapeProduct(edge.Node))
		}

		page := payload.Products.PageInfo
		if !page.HasNextPage || page.EndCursor == "" {
			break
		}
		if _, ok := seen[page.EndCursor]; ok {
			break
		}
		seen[page.EndCursor] = struct{}{}
		after = page.EndCursor
	}

	return all, nil
}

func shapeProduct(node productNode) internal.Product {
	p := internal.Product{
		ID:             node.ID,
		Handle:         node.Handle,
		TotalInventory: node.TotalInventory,
	}

	price, err := util.RoundAmount(node.PriceRangeV2.MinVariantPrice.Amount)
	if err != nil {
		fmt.Printf("product %s: unparseable price %q, using 0\n", node.ID, node.PriceRangeV2.MinVariantPrice.Amount)
	}
	p.Price = price

	if node.Metafield != nil && node.Metafield.Value != "" {
		p.ExternalID = util.StringPtr(node.Metafield.Value)
	}
	if len(node.Variants.Edges) > 0 {
		if b := node.Variants.Edges[0].Node.Barcode; b != nil && *b != "" {
			p.Barcode = b
		}
	}
	return p
}
