package controllers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// currentUserID -> user id placed on the context by the auth middleware
func currentUserID(c *gin.Context) uint {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// currentRoles -> roles placed on the context by the auth middleware
func currentRoles(c *gin.Context) []string {
	if v, exists := c.Get("roles"); exists {
		if roles, ok := v.([]string); ok {
			return roles
		}
	}
	return nil
}

func hasRole(c *gin.Context, role string) bool {
	for _, r := range currentRoles(c) {
		if r == role {
			return true
		}
	}
	return false
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}
