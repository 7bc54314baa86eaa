package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/passage/internal/audit/domain"
)

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func (s *Server) ListUsers(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	users, err := s.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, newUserView(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": views})
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	filter := auditdomain.ListFilter{
		Event:  c.Query("event"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}

	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			AbortWithError(c, newValidationError("userId", "invalid_id", "userId must be numeric"))
			return
		}
		userID := snowflake.ParseInt64(id)
		filter.UserID = &userID
	}
	if raw := c.Query("startAt"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("startAt", "invalid_time", "startAt must be RFC 3339"))
			return
		}
		filter.StartAt = &at
	}
	if raw := c.Query("endAt"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("endAt", "invalid_time", "endAt must be RFC 3339"))
			return
		}
		filter.EndAt = &at
	}

	entries, err := s.audit.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"auditLogs": entries})
}
