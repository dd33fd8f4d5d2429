package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cucumber/godog"

	"pixpax/internal/pixpax/domain/merkle"
	"pixpax/internal/pixpax/events"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/signing"
	"pixpax/internal/pixpax/store/content"
	"pixpax/pkg/testutil"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^a running pixpax service$`, tc.aRunningService)
	ctx.Step(`^a running pixpax service whose random source always returns (\d+)$`, tc.aRunningServiceWithRNG)
	ctx.Step(`^collection "([^"]*)" version "([^"]*)" is seeded with series "([^"]*)" of (\d+) cards$`, tc.seedCollection)

	// Issuance steps
	ctx.Step(`^I issue a weekly pack for user "([^"]*)" in drop "([^"]*)"$`, tc.issueWeeklyPack)
	ctx.Step(`^I issue a dev-untracked pack for user "([^"]*)"$`, tc.issueDevUntrackedPack)
	ctx.Step(`^I remember the pack$`, tc.rememberPack)
	ctx.Step(`^the pack id should match the remembered pack$`, tc.packIDShouldMatch)
	ctx.Step(`^the pack should have (\d+) cards all equal to "([^"]*)"$`, tc.packShouldHaveCards)
	ctx.Step(`^the pack root should be the Merkle root of (\d+) copies of card "([^"]*)"$`, tc.packRootShouldBe)

	// Redeem steps
	ctx.Step(`^I mint a fixed-card code for card "([^"]*)"$`, tc.mintFixedCardCode)
	ctx.Step(`^I redeem the token with a new collector key$`, tc.redeemWithNewCollector)
	ctx.Step(`^I revoke the code$`, tc.revokeCode)
	ctx.Step(`^the conflict should name the first claim$`, tc.conflictShouldNameFirstClaim)

	// Verification steps
	ctx.Step(`^I verify the remembered pack$`, tc.verifyRememberedPack)
	ctx.Step(`^the content of card "([^"]*)" is changed$`, tc.changeCardContent)
	ctx.Step(`^the ledger proof for the remembered pack should be valid$`, tc.ledgerProofShouldBeValid)
	ctx.Step(`^a "([^"]*)" event should have been published$`, tc.eventShouldBePublished)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
}

func (tc *TestContext) aRunningService(ctx context.Context) error {
	return tc.Start()
}

func (tc *TestContext) aRunningServiceWithRNG(ctx context.Context, index int) error {
	return tc.StartWithRNG(index)
}

func (tc *TestContext) seedCollection(ctx context.Context, collectionID, version, seriesID string, cards int) error {
	tc.catalog = testutil.NewCatalogBuilder().
		WithCollection(collectionID, version).
		WithSeries(seriesID, cards).
		Build()
	body := models.SeedRequest{
		Collection: tc.catalog.Collection,
		Index:      tc.catalog.Index,
		Cards:      tc.catalog.Cards,
	}
	if err := tc.Do(http.MethodPost, "/v1/pixpax/collections", body, true); err != nil {
		return err
	}
	return tc.ExpectStatus(http.StatusCreated)
}

func (tc *TestContext) packsPath() string {
	return fmt.Sprintf("/v1/pixpax/collections/%s/%s/packs", tc.catalog.Collection.CollectionID, tc.catalog.Collection.Version)
}

func (tc *TestContext) issueWeeklyPack(ctx context.Context, user, dropID string) error {
	return tc.Do(http.MethodPost, tc.packsPath(), map[string]any{"userKey": user, "dropId": dropID}, false)
}

func (tc *TestContext) issueDevUntrackedPack(ctx context.Context, user string) error {
	return tc.Do(http.MethodPost, tc.packsPath(), map[string]any{"userKey": user, "devUntracked": true}, false)
}

func (tc *TestContext) rememberPack(ctx context.Context) error {
	id, err := tc.GetResponseField("packId")
	if err != nil {
		return err
	}
	tc.packID = fmt.Sprint(id)
	return nil
}

func (tc *TestContext) packIDShouldMatch(ctx context.Context) error {
	id, err := tc.GetResponseField("packId")
	if err != nil {
		return err
	}
	if fmt.Sprint(id) != tc.packID {
		return fmt.Errorf("expected pack %s, got %v", tc.packID, id)
	}
	return nil
}

func (tc *TestContext) packShouldHaveCards(ctx context.Context, n int, cardID string) error {
	field, err := tc.GetResponseField("cards")
	if err != nil {
		return err
	}
	cards, ok := field.([]any)
	if !ok || len(cards) != n {
		return fmt.Errorf("expected %d cards, got %v", n, field)
	}
	for i, c := range cards {
		card, ok := c.(map[string]any)
		if !ok || card["cardId"] != cardID {
			return fmt.Errorf("card %d: expected %s, got %v", i, cardID, c)
		}
	}
	return nil
}

func (tc *TestContext) packRootShouldBe(ctx context.Context, n int, cardID string) error {
	card := tc.catalog.Card(cardID)
	h := merkle.HashCard(card.CollectionID, card.Version, card.CardID, card.RenderPayload)
	hashes := make([]string, n)
	for i := range hashes {
		hashes[i] = h
	}
	return tc.responseFieldShouldEqual(ctx, "packRoot", merkle.Root(hashes))
}

func (tc *TestContext) mintFixedCardCode(ctx context.Context, cardID string) error {
	path := fmt.Sprintf("/v1/pixpax/collections/%s/%s/codes", tc.catalog.Collection.CollectionID, tc.catalog.Collection.Version)
	if err := tc.Do(http.MethodPost, path, map[string]any{"kind": "fixed-card", "cardId": cardID}, true); err != nil {
		return err
	}
	if err := tc.ExpectStatus(http.StatusCreated); err != nil {
		return err
	}
	minted, err := tc.ResponseJSON()
	if err != nil {
		return err
	}
	tc.minted = minted
	tc.token = fmt.Sprint(minted["token"])
	return nil
}

func (tc *TestContext) redeemWithNewCollector(ctx context.Context) error {
	key, err := signing.GenerateKey()
	if err != nil {
		return err
	}
	pub, err := signing.PublicKeyPEM(&key.PublicKey)
	if err != nil {
		return err
	}
	return tc.Do(http.MethodPost, "/v1/pixpax/redeem", map[string]any{"token": tc.token, "collectorPubKey": pub}, false)
}

func (tc *TestContext) revokeCode(ctx context.Context) error {
	path := fmt.Sprintf("/v1/pixpax/codes/%s/revoke", tc.minted["codeId"])
	if err := tc.Do(http.MethodPost, path, map[string]any{"reason": "lost"}, true); err != nil {
		return err
	}
	return tc.ExpectStatus(http.StatusOK)
}

func (tc *TestContext) conflictShouldNameFirstClaim(ctx context.Context) error {
	if err := tc.responseFieldShouldEqual(ctx, "status", models.StatusAlreadyClaimed); err != nil {
		return err
	}
	for _, field := range []string{"codeId", "mintRef"} {
		if err := tc.responseFieldShouldEqual(ctx, field, fmt.Sprint(tc.minted[field])); err != nil {
			return err
		}
	}
	return tc.packIDShouldMatch(ctx)
}

func (tc *TestContext) verifyRememberedPack(ctx context.Context) error {
	return tc.Do(http.MethodPost, "/v1/pixpax/packs/verify", map[string]any{
		"packId":       tc.packID,
		"collectionId": tc.catalog.Collection.CollectionID,
		"version":      tc.catalog.Collection.Version,
	}, false)
}

// changeCardContent rewrites a stored card underneath the service.
func (tc *TestContext) changeCardContent(ctx context.Context, cardID string) error {
	card := tc.catalog.Card(cardID)
	card.RenderPayload.GridB64 = "tampered-" + card.RenderPayload.GridB64
	return content.New(tc.gateway, "").PutCard(ctx, card)
}

func (tc *TestContext) ledgerProofShouldBeValid(ctx context.Context) error {
	segmentKey, err := tc.GetResponseField("audit.segmentKey")
	if err != nil {
		return err
	}
	q := url.Values{"segmentKey": {fmt.Sprint(segmentKey)}, "packId": {tc.packID}}
	if err := tc.Do(http.MethodGet, "/v1/pixpax/ledger/proof?"+q.Encode(), nil, false); err != nil {
		return err
	}
	if err := tc.ExpectStatus(http.StatusOK); err != nil {
		return err
	}
	return tc.responseFieldShouldEqual(ctx, "ok", "true")
}

func (tc *TestContext) eventShouldBePublished(ctx context.Context, eventType string) error {
	// the publisher is asynchronous
	for i := 0; i < 100; i++ {
		if len(tc.sink.OfType(events.Type(eventType))) > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return fmt.Errorf("no %s event published", eventType)
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, code int) error {
	return tc.ExpectStatus(code)
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	val, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(val) != expected {
		return fmt.Errorf("field %s: expected %q, got %v", field, expected, val)
	}
	return nil
}
