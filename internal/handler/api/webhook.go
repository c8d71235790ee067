package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	reqdto "coursereg/internal/handler/dto/request"
	"coursereg/internal/pkg/config"
	"coursereg/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-Gateway-Signature"

type WebhookHandler struct {
	reconcile commands.ReconcileCommands
	secret    []byte
}

func NewWebhookHandler(reconcile commands.ReconcileCommands, cfg config.GatewayConfig) *WebhookHandler {
	return &WebhookHandler{
		reconcile: reconcile,
		secret:    []byte(cfg.WebhookSecret),
	}
}

// @Summary Payment gateway webhook
// @Description Receives gateway deliveries. Returns 200 once the event is
// @Description durably queued; processing is asynchronous.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Gateway-Signature header string true "HMAC-SHA256 of the body"
// @Param request body reqdto.GatewayWebhookRequest true "Gateway event"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /webhooks/gateway [post]
func (h *WebhookHandler) HandleGatewayEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unreadable request body",
		})
		return
	}

	if !h.verifySignature(body, c.GetHeader(signatureHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid signature",
		})
		return
	}

	var req reqdto.GatewayWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil || req.EventID == "" || req.Kind == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid event format",
		})
		return
	}

	err = h.reconcile.IntakeGatewayEvent(c.Request.Context(), commands.IntakeEvent{
		ProviderEventID: req.EventID,
		ProviderRef:     req.ProviderRef,
		Kind:            req.Kind,
		AmountCents:     req.AmountCents,
		Currency:        req.Currency,
		Payload:         req.Data,
	})
	if err != nil {
		// The gateway will redeliver; dedupe absorbs the repeat.
		slog.Error("webhook intake failed", "event_id", req.EventID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Intake failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
