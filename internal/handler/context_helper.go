package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/carehero-care/portal-api/internal/middleware"
	"github.com/carehero-care/portal-api/internal/models"
	"github.com/carehero-care/portal-api/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) service.Actor {
	actor := service.Actor{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if claims := claimsFromContext(c); claims != nil {
		actor.UserID = claims.UserID
	}
	return actor
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
