package public

import (
	handlershared "github.com/bazar-next/internal/http/handlers/shared"
	"github.com/bazar-next/internal/service"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "user_id")
}

func getUserRole(c *gin.Context) string {
	if value, ok := c.Get("user_role"); ok {
		if role, ok := value.(string); ok {
			return role
		}
	}
	return ""
}

// getActor 组装当前请求的操作者信息
func getActor(c *gin.Context) (service.StatusActor, bool) {
	uid, ok := getUserID(c)
	if !ok {
		return service.StatusActor{}, false
	}
	return service.StatusActor{
		UserID:   uid,
		Role:     getUserRole(c),
		ClientIP: c.ClientIP(),
	}, true
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}
