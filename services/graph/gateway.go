package graph

import (
	"context"
	"net/http"
	"strings"
	"time"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/enum"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/models"
	"github.com/mailweave/mailweave/internal/tracing"
	"github.com/mailweave/mailweave/internal/utils"
)

const (
	deltaPageSize          = 100
	subscriptionChangeType = "created,updated,deleted"
	subscriptionResource   = "/me/messages"
	// Graph caps message subscriptions at roughly three days.
	subscriptionLifetime = 70 * time.Hour
)

var deltaSelectFields = []string{
	"id", "conversationId", "subject", "bodyPreview", "from", "toRecipients",
	"ccRecipients", "isRead", "hasAttachments", "importance", "flag",
	"receivedDateTime", "sentDateTime",
}

// wellKnownFolders maps local folders onto Graph well-known folder names.
var wellKnownFolders = map[enum.Folder]string{
	enum.FolderInbox:   "inbox",
	enum.FolderSent:    "sentitems",
	enum.FolderDrafts:  "drafts",
	enum.FolderDeleted: "deleteditems",
	enum.FolderJunk:    "junkemail",
	enum.FolderArchive: "archive",
}

// Gateway implements the MailGateway abstraction over Microsoft Graph.
// Provider failures are mapped onto the internal error taxonomy: HTTP 410 /
// resync errors become ErrStaleCursor, 401/403 become ErrAuthFailed,
// everything else stays a plain (retryable) error.
type Gateway struct {
	identity interfaces.IdentityService
	log      logger.Logger
}

func NewGateway(identity interfaces.IdentityService, log logger.Logger) interfaces.MailGateway {
	return &Gateway{
		identity: identity,
		log:      log,
	}
}

// clientFor builds a Graph client authenticated as the owner. Clients are
// cheap wrappers around the request adapter, so no pooling is needed.
func (g *Gateway) clientFor(ctx context.Context, ownerID string) (*msgraphsdk.GraphServiceClient, error) {
	source, err := g.identity.ProviderTokenSource(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(&tokenSourceCredential{source: source}, []string{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Graph client")
	}
	return client, nil
}

func (g *Gateway) FetchDelta(ctx context.Context, ownerID string, folder enum.Folder, cursor string) (*interfaces.DeltaPage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "graphGateway.FetchDelta")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagFolder(span, folder.String())
	span.SetTag("full_sync", cursor == "")

	client, err := g.clientFor(ctx, ownerID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	var response users.ItemMailFoldersItemMessagesDeltaGetResponseable

	if cursor == "" {
		folderName, ok := wellKnownFolders[folder]
		if !ok {
			return nil, errors.Errorf("unknown folder %s", folder)
		}

		requestConfig := &users.ItemMailFoldersItemMessagesDeltaRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemMailFoldersItemMessagesDeltaRequestBuilderGetQueryParameters{
				Top:    utils.Ptr(int32(deltaPageSize)),
				Select: deltaSelectFields,
			},
		}
		response, err = client.Me().
			MailFolders().
			ByMailFolderId(folderName).
			Messages().
			Delta().
			GetAsDeltaGetResponse(ctx, requestConfig)
	} else {
		// The cursor is an opaque nextLink or deltaLink; replay it verbatim.
		builder := users.NewItemMailFoldersItemMessagesDeltaRequestBuilder(cursor, client.GetAdapter())
		response, err = builder.GetAsDeltaGetResponse(ctx, nil)
	}

	if err != nil {
		mapped := mapGraphError(err)
		tracing.TraceErr(span, mapped)
		return nil, mapped
	}

	page := &interfaces.DeltaPage{
		NextCursor:  utils.GetOrDefault(response.GetOdataNextLink(), ""),
		DeltaCursor: utils.GetOrDefault(response.GetOdataDeltaLink(), ""),
	}
	for _, msg := range response.GetValue() {
		page.Records = append(page.Records, normalizeMessage(ownerID, folder, msg))
	}
	span.SetTag("record_count", len(page.Records))
	span.SetTag("terminal", page.DeltaCursor != "")

	return page, nil
}

func (g *Gateway) FetchMessage(ctx context.Context, ownerID, providerID string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "graphGateway.FetchMessage")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)

	client, err := g.clientFor(ctx, ownerID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	msg, err := client.Me().Messages().ByMessageId(providerID).Get(ctx, nil)
	if err != nil {
		mapped := mapGraphError(err)
		tracing.TraceErr(span, mapped)
		return nil, mapped
	}

	record := normalizeMessage(ownerID, "", msg)
	return record.Email, nil
}

func (g *Gateway) CreateSubscription(ctx context.Context, ownerID, notifyURL, clientState string) (*interfaces.SubscriptionInfo, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "graphGateway.CreateSubscription")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)

	client, err := g.clientFor(ctx, ownerID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	expiration := utils.Now().Add(subscriptionLifetime)
	subscription := graphmodels.NewSubscription()
	subscription.SetChangeType(utils.Ptr(subscriptionChangeType))
	subscription.SetNotificationUrl(utils.Ptr(notifyURL))
	subscription.SetResource(utils.Ptr(subscriptionResource))
	subscription.SetClientState(utils.Ptr(clientState))
	subscription.SetExpirationDateTime(&expiration)

	created, err := client.Subscriptions().Post(ctx, subscription, nil)
	if err != nil {
		mapped := mapGraphError(err)
		tracing.TraceErr(span, mapped)
		return nil, mapped
	}

	return &interfaces.SubscriptionInfo{
		SubscriptionID: utils.GetOrDefault(created.GetId(), ""),
		Resource:       utils.GetOrDefault(created.GetResource(), ""),
		ExpiresAt:      utils.GetOrDefault(created.GetExpirationDateTime(), expiration),
	}, nil
}

func (g *Gateway) RenewSubscription(ctx context.Context, ownerID, subscriptionID string) (time.Time, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "graphGateway.RenewSubscription")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, subscriptionID)

	client, err := g.clientFor(ctx, ownerID)
	if err != nil {
		tracing.TraceErr(span, err)
		return time.Time{}, err
	}

	expiration := utils.Now().Add(subscriptionLifetime)
	patch := graphmodels.NewSubscription()
	patch.SetExpirationDateTime(&expiration)

	updated, err := client.Subscriptions().BySubscriptionId(subscriptionID).Patch(ctx, patch, nil)
	if err != nil {
		mapped := mapGraphError(err)
		tracing.TraceErr(span, mapped)
		return time.Time{}, mapped
	}

	return utils.GetOrDefault(updated.GetExpirationDateTime(), expiration), nil
}

func (g *Gateway) DeleteSubscription(ctx context.Context, ownerID, subscriptionID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "graphGateway.DeleteSubscription")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, subscriptionID)

	client, err := g.clientFor(ctx, ownerID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if err := client.Subscriptions().BySubscriptionId(subscriptionID).Delete(ctx, nil); err != nil {
		mapped := mapGraphError(err)
		tracing.TraceErr(span, mapped)
		return mapped
	}
	return nil
}

// mapGraphError folds Graph failures into the internal taxonomy.
func mapGraphError(err error) error {
	var odataErr *odataerrors.ODataError
	if !errors.As(err, &odataErr) {
		return err
	}

	switch odataErr.ResponseStatusCode {
	case http.StatusGone:
		return errors.Wrap(apperrors.ErrStaleCursor, err.Error())
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Wrap(apperrors.ErrAuthFailed, err.Error())
	}

	if mainErr := odataErr.GetErrorEscaped(); mainErr != nil {
		code := strings.ToLower(utils.GetOrDefault(mainErr.GetCode(), ""))
		if strings.Contains(code, "syncstatenotfound") || strings.Contains(code, "resync") {
			return errors.Wrap(apperrors.ErrStaleCursor, err.Error())
		}
		if code == "invalidauthenticationtoken" {
			return errors.Wrap(apperrors.ErrAuthFailed, err.Error())
		}
	}
	return err
}
