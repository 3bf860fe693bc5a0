package shopify

import (
	"context"
	"encoding/json"
	"fmt"
)

const productUpdateMutation = `mutation productUpdate($id: ID!, $metafields: [MetafieldInput!]!) {
  productUpdate(product: { id: $id, metafields: $metafields }) {
    userErrors { field message }
  }
}`

const tagsAddMutation = `mutation tagsAdd($id: ID!, $tags: [String!]!) {
  tagsAdd(id: $id, tags: $tags) {
    userErrors { field message }
  }
}`

type productUpdatePayload struct {
	ProductUpdate struct {
		UserErrors []UserError `json:"userErrors"`
	} `json:"productUpdate"`
}

type tagsAddPayload struct {
	TagsAdd struct {
		UserErrors []UserError `json:"userErrors"`
	} `json:"tagsAdd"`
}

// SetExternalID upserts the single-valued BGG id metafield on a product.
// The upsert is idempotent: re-running with the same value is a no-op remotely.
func (c *Client) SetExternalID(ctx context.Context, productID, objectID string) error {
	variables := map[string]any{
		"id": productID,
		"metafields": []map[string]any{
			{
				"namespace": c.cfg.MetafieldNS,
				"key":       c.cfg.MetafieldKey,
				"type":      "single_line_text_field",
				"value":     objectID,
			},
		},
	}

	data, err := c.query(ctx, productUpdateMutation, variables)
	if err != nil {
		return fmt.Errorf("productUpdate %s: %w", productID, err)
	}

	var payload productUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode productUpdate response: %w", err)
	}
	if len(payload.ProductUpdate.UserErrors) > 0 {
		return &UserErrorsError{Action: "productUpdate", Errors: payload.ProductUpdate.UserErrors}
	}
	return nil
}

// FlagManualReview adds the review-marker tag so the next run's catalog
// filter excludes the product.
func (c *Client) FlagManualReview(ctx context.Context, productID string) error {
	variables := map[string]any{
		"id":   productID,
		"tags": []string{c.cfg.ManualReviewTag},
	}

	data, err := c.query(ctx, tagsAddMutation, variables)
	if err != nil {
		return fmt.Errorf("tagsAdd %s: %w", productID, err)
	}

	var payload tagsAddPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode tagsAdd response: %w", err)
	}
	if len(payload.TagsAdd.UserErrors) > 0 {
		return &UserErrorsError{Action: "tagsAdd", Errors: payload.TagsAdd.UserErrors}
	}
	return nil
}
