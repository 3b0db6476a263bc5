package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/respond"
)

var errSelfSubscription = apperr.Validation("cannot subscribe to your own channel")

// SubscriptionHandler implements the subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Views         ViewComposer
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	account, err := currentAccount(r)
	if err != nil {
		return err
	}
	channelID, err := pathID(r, "channelId")
	if err != nil {
		return err
	}
	if channelID == account.ID {
		return errSelfSubscription
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, account.ID, channelID)
	if err != nil {
		return apperr.WithMessage(err, "channel not found")
	}

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	respond.Success(ctx, w, http.StatusOK, map[string]bool{"isSubscribed": subscribed}, message)
	return nil
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) error {
	channelID, err := pathID(r, "channelId")
	if err != nil {
		return err
	}

	subscribers, err := h.Views.ChannelSubscribers(r.Context(), channelID)
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, subscribers, "subscribers fetched successfully")
	return nil
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) error {
	subscriberID, err := pathID(r, "subscriberId")
	if err != nil {
		return err
	}

	channels, err := h.Views.SubscribedChannels(r.Context(), subscriberID)
	if err != nil {
		return err
	}
	respond.Success(r.Context(), w, http.StatusOK, channels, "subscribed channels fetched successfully")
	return nil
}
