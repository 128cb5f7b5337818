package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/roster"
)

// MsgFileTooLarge is returned when an upload exceeds the configured ceiling.
const MsgFileTooLarge = "File too large"

func (h *Handler) listStudents(c *gin.Context) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	students, err := h.roster.List(c.Request.Context(), actor(c), eventID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) uploadStudents(c *gin.Context) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, apperr.Wrap(apperr.KindValidation, MsgFileTooLarge, err))
			return
		}
		fail(c, apperr.Wrap(apperr.KindValidation, roster.MsgNoFile, err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, apperr.Internal(fmt.Errorf("open upload: %w", err)))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, apperr.Internal(fmt.Errorf("read upload: %w", err)))
		return
	}

	res, err := h.roster.Upload(c.Request.Context(), actor(c), eventID, roster.File{Name: fh.Filename, Data: data})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) assignStudent(c *gin.Context) {
	var req struct {
		IDNum   string `json:"id_num"`
		EventID int64  `json:"event_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.KindValidation, attendance.MsgAssignRequired, err))
		return
	}
	res, err := h.attendance.ToggleAssignment(c.Request.Context(), actor(c), req.IDNum, req.EventID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Student " + res.Action + " successfully",
		"action":  res.Action,
		"student": res.Student,
	})
}

type codeRequest struct {
	IDNum     string `json:"id_num"`
	EventCode string `json:"event_code"`
}

func (h *Handler) authorizeStudent(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.KindValidation, attendance.MsgAuthorizeRequired, err))
		return
	}
	d, err := h.attendance.Authorize(c.Request.Context(), req.IDNum, req.EventCode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(decisionStatus(d), d)
}

func (h *Handler) scanStudent(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.KindValidation, attendance.MsgAuthorizeRequired, err))
		return
	}
	res, d, err := h.attendance.Scan(c.Request.Context(), req.IDNum, req.EventCode)
	if err != nil {
		fail(c, err)
		return
	}
	if res == nil {
		c.JSON(decisionStatus(d), d)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) listLogs(c *gin.Context) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return
	}
	logs, err := h.attendance.Logs(c.Request.Context(), actor(c), eventID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func decisionStatus(d attendance.Decision) int {
	if d.Authorized {
		return http.StatusOK
	}
	return http.StatusForbidden
}
