package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/event"
)

func (h *Handler) listEvents(c *gin.Context) {
	events, err := h.events.List(c.Request.Context(), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) createEvent(c *gin.Context) {
	var in event.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Wrap(apperr.KindValidation, event.MsgFieldsRequired, err))
		return
	}
	e, err := h.events.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) updateEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in event.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Wrap(apperr.KindValidation, event.MsgFieldsRequired, err))
		return
	}
	e, err := h.events.Update(c.Request.Context(), actor(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) deleteEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.events.Delete(c.Request.Context(), actor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}
