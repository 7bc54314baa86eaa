package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/passage/internal/guard"
)

func (s *Server) ListApprovedSubnets(c *gin.Context) {
	user := guard.CurrentUser(c)
	if user == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	subnets, err := s.subnets.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]subnetView, 0, len(subnets))
	for _, subnet := range subnets {
		views = append(views, newSubnetView(subnet))
	}
	c.JSON(http.StatusOK, gin.H{"approvedSubnets": views})
}

// ApproveCurrentSubnet whitelists the network the caller is on right
// now, so a later login from it skips the approval mail.
func (s *Server) ApproveCurrentSubnet(c *gin.Context) {
	user := guard.CurrentUser(c)
	if user == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	approved, err := s.subnets.ApproveNewSubnet(c.Request.Context(), user.ID, c.ClientIP())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newSubnetView(*approved))
}

func (s *Server) DeleteApprovedSubnet(c *gin.Context) {
	user := guard.CurrentUser(c)
	if user == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	raw, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "id must be numeric"))
		return
	}

	if err := s.subnets.Delete(c.Request.Context(), user.ID, snowflake.ParseInt64(raw)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
