package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/utils"

	"github.com/google/uuid"
)

// billingWebhookPayload is the provider's event envelope.
type billingWebhookPayload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			RedditUsername string `json:"reddit_username"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			UserEmail   string      `json:"user_email"`
			UserName    string      `json:"user_name"`
			VariantName string      `json:"variant_name"`
			RenewsAt    string      `json:"renews_at"`
			CustomerID  json.Number `json:"customer_id"`
		} `json:"attributes"`
	} `json:"data"`
}

// HandleBillingWebhook verifies the HMAC signature of an inbound billing
// event and upserts the matching user's subscription fields. Users are
// matched on name, falling back to creating a new record.
func (h *Handler) HandleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Error reading request body")
		return
	}

	if !h.billingSignatureValid(body, r.Header.Get("X-Signature")) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var payload billingWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	event := models.BillingEvent{
		EventName:      payload.Meta.EventName,
		Email:          payload.Data.Attributes.UserEmail,
		Name:           payload.Data.Attributes.UserName,
		RedditUsername: payload.Meta.CustomData.RedditUsername,
		VariantName:    payload.Data.Attributes.VariantName,
		RenewsAt:       payload.Data.Attributes.RenewsAt,
		CustomerID:     payload.Data.Attributes.CustomerID.String(),
		SubscriptionID: payload.Data.ID,
	}

	if event.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing user name in payload")
		return
	}

	if err := h.upsertSubscriber(event); err != nil {
		utils.Errorf("applying billing event %q for %s: %v", event.EventName, event.Name, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error applying billing event")
		return
	}

	utils.Infof("applied billing event %q for %s (%s)", event.EventName, event.Name, event.VariantName)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Webhook processed"})
}

func (h *Handler) billingSignatureValid(body []byte, signature string) bool {
	if h.cfg.BillingWebhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.cfg.BillingWebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (h *Handler) upsertSubscriber(event models.BillingEvent) error {
	var renewsAt *time.Time
	if event.RenewsAt != "" {
		if t, err := time.Parse(time.RFC3339, event.RenewsAt); err == nil {
			renewsAt = &t
		}
	}

	user, err := h.db.GetUserByName(event.Name)
	if err != nil {
		user = &models.User{
			ID:        uuid.New().String(),
			Email:     event.Email,
			Name:      event.Name,
			CreatedAt: time.Now(),
		}
		if err := h.db.CreateUser(user); err != nil {
			return err
		}
	}

	user.RedditUsername = event.RedditUsername
	user.VariantName = event.VariantName
	user.SubscriptionRenewsAt = renewsAt
	user.CustomerID = event.CustomerID
	user.SubscriptionID = event.SubscriptionID
	user.PostAvailable = planAllotment(event.VariantName)

	return h.db.UpdateSubscription(user)
}

// planAllotment maps a plan name to its monthly post credit grant. Premium
// plans never consume credits, so their allotment is nominal.
func planAllotment(variantName string) int {
	v := strings.ToLower(variantName)
	switch {
	case strings.Contains(v, "premium"), strings.Contains(v, "pro"):
		return 0
	case strings.Contains(v, "starter"), strings.Contains(v, "basic"):
		return 30
	default:
		return 10
	}
}
