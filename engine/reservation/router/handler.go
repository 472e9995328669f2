package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentabot/rentabot/engine/infra/monitoring"
	srvrouter "github.com/rentabot/rentabot/engine/infra/server/router"
	"github.com/rentabot/rentabot/engine/reservation"
	"github.com/rentabot/rentabot/engine/reservation/uc"
	"github.com/rentabot/rentabot/engine/resource"
)

// CreateReservationRequest is the JSON body for lodging a reservation.
type CreateReservationRequest struct {
	Tags        []string `json:"tags"`
	Quantity    int      `json:"quantity"`
	MaxWaitTime int      `json:"max_wait_time"`
	TTL         int      `json:"ttl"`
}

// Handler translates reservation HTTP requests into core operations.
type Handler struct {
	resources    *resource.Store
	reservations *reservation.Store
	metrics      *monitoring.Metrics
}

func NewHandler(
	resources *resource.Store,
	reservations *reservation.Store,
	metrics *monitoring.Metrics,
) *Handler {
	return &Handler{resources: resources, reservations: reservations, metrics: metrics}
}

// Register wires the reservation routes onto an API prefix group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/reservations", h.Create)
	g.GET("/reservations", h.List)
	g.GET("/reservations/:id", h.Get)
	g.POST("/reservations/:id/claim", h.Claim)
	g.DELETE("/reservations/:id", h.Cancel)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srvrouter.RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	createUC := uc.NewCreate(h.resources, h.reservations, h.metrics, &uc.CreateInput{
		Tags:        req.Tags,
		Quantity:    req.Quantity,
		MaxWaitTime: req.MaxWaitTime,
		TTL:         req.TTL,
	})
	created, err := createUC.Execute(c.Request.Context())
	if err != nil {
		srvrouter.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) List(c *gin.Context) {
	listUC := uc.NewList(h.reservations)
	reservations, err := listUC.Execute(c.Request.Context())
	if err != nil {
		srvrouter.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

func (h *Handler) Get(c *gin.Context) {
	getUC := uc.NewGet(h.reservations, c.Param("id"))
	r, err := getUC.Execute(c.Request.Context())
	if err != nil {
		srvrouter.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) Claim(c *gin.Context) {
	claimUC := uc.NewClaim(h.reservations, h.metrics, c.Param("id"))
	claimed, err := claimUC.Execute(c.Request.Context())
	if err != nil {
		srvrouter.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claimed)
}

func (h *Handler) Cancel(c *gin.Context) {
	cancelUC := uc.NewCancel(h.reservations, h.metrics, c.Param("id"))
	if err := cancelUC.Execute(c.Request.Context()); err != nil {
		srvrouter.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
