package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/auth"
)

func (h *Handler) register(c *gin.Context) {
	var in auth.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Wrap(apperr.KindValidation, auth.MsgFieldsRequired, err))
		return
	}
	sess, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.setToken(c, sess.Token)
	c.JSON(http.StatusCreated, sess)
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		IDNum    string `json:"id_num"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Wrap(apperr.KindAuth, auth.MsgInvalidCredentials, err))
		return
	}
	sess, err := h.auth.Login(c.Request.Context(), req.IDNum, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.setToken(c, sess.Token)
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) logout(c *gin.Context) {
	h.cookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (h *Handler) getGovernor(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"governor": actor(c)})
}

func (h *Handler) setToken(c *gin.Context, token string) {
	h.cookie(c, token, int(h.opts.CookieMaxAge.Seconds()))
}

func (h *Handler) cookie(c *gin.Context, value string, maxAge int) {
	if h.opts.SecureCookies {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(auth.CookieName, value, maxAge, "/", "", h.opts.SecureCookies, true)
}
