package router

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rentabot/rentabot/engine/infra/monitoring"
	srvrouter "github.com/rentabot/rentabot/engine/infra/server/router"
	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/engine/resource/uc"
)

// LockRequest is the optional JSON body of lock endpoints.
type LockRequest struct {
	TTL *int `json:"ttl"`
}

// Handler translates resource HTTP requests into core operations.
type Handler struct {
	store   *resource.Store
	metrics *monitoring.Metrics
}

func NewHandler(store *resource.Store, metrics *monitoring.Metrics) *Handler {
	return &Handler{store: store, metrics: metrics}
}

// Register wires the resource routes onto an API prefix group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/resources", h.List)
	g.GET("/resources/:id", h.Get)
	g.POST("/resources/lock", h.LockByCriteria)
	g.POST("/resources/:id/lock", h.Lock)
	g.POST("/resources/:id/unlock", h.Unlock)
	g.POST("/resources/:id/extend", h.Extend)
}

func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"resources": h.store.List()})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.resourceID(c)
	if !ok {
		return
	}
	r, err := h.store.Get(id)
	if err != nil {
		srvrouter.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": r})
}

func (h *Handler) Lock(c *gin.Context) {
	id, ok := h.resourceID(c)
	if !ok {
		return
	}
	ttl, ok := h.bindTTL(c)
	if !ok {
		return
	}
	lockUC := uc.NewLock(h.store, h.metrics, &uc.LockInput{ResourceID: id, TTL: ttl})
	result, err := lockUC.Execute(c.Request.Context())
	if err != nil {
		srvrouter.RespondError(c, err)
		return
	}
	respondLocked(c, result)
}

func (h *Handler) Unlock(c *gin.Context) {
	id, ok := h.resourceID(c)
	if !ok {
		return
	}
	unlockUC := uc.NewUnlock(h.store, h.metrics, &uc.UnlockInput{
		ResourceID: id,
		Token:      c.Query("lock-token"),
	})
	if err := unlockUC.Execute(c.Request.Context()); err != nil {
		srvrouter.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Resource unlocked"})
}

func (h *Handler) Extend(c *gin.Context) {
	id, ok := h.resourceID(c)
	if !ok {
		return
	}
	additionalTTL, err := strconv.Atoi(c.Query("additional-ttl"))
	if err != nil {
		srvrouter.RespondBadRequest(c, "Query parameter additional-ttl must be an integer")
		return
	}
	extendUC := uc.NewExtend(h.store, h.metrics, &uc.ExtendInput{
		ResourceID:    id,
		Token:         c.Query("lock-token"),
		AdditionalTTL: additionalTTL,
	})
	result, err := extendUC.Execute(c.Request.Context())
	if err != nil {
		srvrouter.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":             "Lock extended",
		"new-expires-at":      result.Resource.LockExpiresAt,
		"total-lock-duration": result.TotalLockDuration,
	})
}

func (h *Handler) LockByCriteria(c *gin.Context) {
	ttl, ok := h.bindTTL(c)
	if !ok {
		return
	}
	input := &uc.LockByCriteriaInput{
		Name: c.Query("name"),
		Tags: c.QueryArray("tag"),
		TTL:  ttl,
	}
	if rawID := c.Query("id"); rawID != "" {
		id, err := strconv.Atoi(rawID)
		if err != nil {
			srvrouter.RespondBadRequest(c, "Query parameter id must be an integer")
			return
		}
		input.ID = id
	}
	lockUC := uc.NewLockByCriteria(h.store, h.metrics, input)
	result, err := lockUC.Execute(c.Request.Context())
	if err != nil {
		srvrouter.RespondError(c, err)
		return
	}
	respondLocked(c, result)
}

func (h *Handler) resourceID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		srvrouter.RespondBadRequest(c, "Resource id must be an integer")
		return 0, false
	}
	return id, true
}

// bindTTL reads the optional {ttl} body; an empty body means defaults.
func (h *Handler) bindTTL(c *gin.Context) (int, bool) {
	var req LockRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		srvrouter.RespondBadRequest(c, "Invalid request body: "+err.Error())
		return 0, false
	}
	if req.TTL != nil {
		return *req.TTL, true
	}
	return 0, true
}

func respondLocked(c *gin.Context, result *uc.LockResult) {
	c.JSON(http.StatusOK, gin.H{
		"message":    "Resource locked",
		"lock-token": result.Token,
		"resource":   result.Resource,
		"locked-at":  result.Resource.LockAcquiredAt,
		"expires-at": result.Resource.LockExpiresAt,
	})
}
