package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-relay-gate/internal/auth"
	"github.com/0gfoundation/0g-relay-gate/internal/ticket"
)

// DefaultActionPath is the route existing callers post to.
const DefaultActionPath = "/DevOps"

// otherMethods are answered by handleOther on the action path; together
// with POST they are every method net/http defines.
var otherMethods = []string{
	http.MethodGet,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
	http.MethodTrace,
	http.MethodConnect,
}

// TicketIssuer is satisfied by ticket.Issuer.
type TicketIssuer interface {
	Issue(ctx context.Context, req ticket.ActionRequest) (*ticket.Ticket, error)
}

type Options struct {
	ActionPath string
	// LegacyMethodError keeps the 200 "ERROR" reply for non-POST methods.
	LegacyMethodError bool
}

// Handler serves the ticket-gated relay action.
type Handler struct {
	issuer     TicketIssuer
	dispatcher Dispatcher
	opts       Options
	log        *zap.Logger
}

func NewHandler(issuer TicketIssuer, dispatcher Dispatcher, opts Options, log *zap.Logger) *Handler {
	if opts.ActionPath == "" {
		opts.ActionPath = DefaultActionPath
	}
	return &Handler{issuer: issuer, dispatcher: dispatcher, opts: opts, log: log}
}

// Register mounts the action routes. auth.APIKey and auth.Ticket should
// already be applied to the group; they run for every method.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST(h.opts.ActionPath, h.handleAction)
	for _, m := range otherMethods {
		rg.Handle(m, h.opts.ActionPath, h.handleOther)
	}
}

// actionBody accepts the legacy "timeToLifeSec" spelling as well.
type actionBody struct {
	Message       string `json:"message" binding:"required"`
	To            string `json:"to" binding:"required"`
	From          string `json:"from" binding:"required"`
	TimeToLiveSec int64  `json:"timeToLiveSec"`
	TimeToLifeSec int64  `json:"timeToLifeSec"`
}

func (b actionBody) request() ticket.ActionRequest {
	ttl := b.TimeToLiveSec
	if ttl == 0 {
		ttl = b.TimeToLifeSec
	}
	return ticket.ActionRequest{Message: b.Message, To: b.To, From: b.From, TimeToLiveSec: ttl}
}

func (h *Handler) handleAction(c *gin.Context) {
	var body actionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	req := body.request()
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	// The next ticket is registered before the action runs but only handed
	// out if the action is accepted; an unreturned ticket just expires.
	next, err := h.issuer.Issue(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ticket.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}
		h.log.Error("issue next ticket", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	msg := Message{Text: req.Message, To: req.To, From: req.From}
	if claims, ok := auth.ClaimsFrom(c); ok {
		msg.AuthorizedBy = claims.IssuedBy()
	}
	if err := h.dispatcher.Dispatch(c.Request.Context(), msg); err != nil {
		h.log.Error("dispatch message", zap.String("to", req.To), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "message not accepted"})
		return
	}

	c.Header(auth.TicketHeader, ticket.WithScheme(next.Raw))
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Hello %s, your message will be sent", req.To)})
}

func (h *Handler) handleOther(c *gin.Context) {
	if h.opts.LegacyMethodError {
		c.String(http.StatusOK, "ERROR")
		return
	}
	c.Header("Allow", http.MethodPost)
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
}
