package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"rewe/crawler/internal/client"
	"rewe/crawler/internal/domain"

	log "github.com/sirupsen/logrus"
)

const pickupVariant = "abholservice"

// Branches returns every market around zip that offers pickup.
func (s *Store) Branches(ctx context.Context, zip string) ([]domain.Branch, error) {
	if zip == "" {
		return nil, fmt.Errorf("%w: zip code must not be empty", domain.ErrPrecondition)
	}

	body, err := s.gateway.Call(ctx, client.Call{
		APIPrefix: "shop/",
		Endpoint:  "marketselection/zipcodes/" + zip + "/services/pickup",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch branches for %s: %w", zip, err)
	}

	var branches []domain.Branch
	if err := json.Unmarshal(body, &branches); err != nil {
		return nil, fmt.Errorf("%w: branches: %w", domain.ErrDecode, err)
	}
	return branches, nil
}

// HasPickup reports whether b is a pickup market.
func HasPickup(b domain.Branch) bool {
	return strings.EqualFold(b.PickupVariant, pickupVariant)
}

// FirstPickupBranch returns the first branch around zip with pickup.
func (s *Store) FirstPickupBranch(ctx context.Context, zip string) (domain.Branch, bool, error) {
	branches, err := s.Branches(ctx, zip)
	if err != nil {
		return domain.Branch{}, false, err
	}
	for _, b := range branches {
		if HasPickup(b) {
			return b, true, nil
		}
	}
	return domain.Branch{}, false, nil
}

// BasketResult is the outcome of adding one listing to the basket.
type BasketResult struct {
	ListingID string
	Status    int
	Body      json.RawMessage
}

// AddToBasket puts quantity of every listing into the session basket, one
// request per listing. It stops at the first transport error.
func (s *Store) AddToBasket(ctx context.Context, listingIDs []string, quantity int) ([]BasketResult, error) {
	if len(listingIDs) == 0 {
		return nil, fmt.Errorf("%w: no listing ids", domain.ErrPrecondition)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrPrecondition, quantity)
	}

	results := make([]BasketResult, 0, len(listingIDs))
	for _, id := range listingIDs {
		resp, err := s.gateway.Do(ctx, client.Call{
			APIPrefix: s.opts.APIPrefix,
			Endpoint:  "baskets/listings/" + id,
			Method:    client.MethodPost,
			Form: map[string]string{
				"context":         recommendationContext,
				"includeTimeslot": "false",
				"quantity":        strconv.Itoa(quantity),
			},
		})
		if err != nil {
			return results, fmt.Errorf("failed to add %s to basket: %w", id, err)
		}

		result := BasketResult{ListingID: id, Status: resp.StatusCode()}
		if body, err := client.Decode(resp); err == nil {
			result.Body = body
		}
		if resp.IsError() {
			log.Warnf("Basket rejected %s: %s", id, resp.Status())
		}
		results = append(results, result)
	}
	return results, nil
}
