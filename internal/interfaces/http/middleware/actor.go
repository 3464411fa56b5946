package middleware

import (
	"net/http"

	"github.com/erp/posledger/internal/infrastructure/logger"
	"github.com/erp/posledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActorHeader names the cashier or clerk acting on the request. The calling
// service layer authenticates users and forwards the ID.
const ActorHeader = "X-User-ID"

const actorIDKey = "actor_id"

// Actor parses ActorHeader when present and attaches it to the request
// context and its logger. A malformed ID is rejected.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(ActorHeader)
		if raw == "" {
			c.Next()
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest,
				"Invalid "+ActorHeader+" header",
				GetRequestID(c),
			))
			return
		}
		c.Set(actorIDKey, id)
		c.Request = c.Request.WithContext(logger.WithActorID(c.Request.Context(), id.String()))
		c.Next()
	}
}

// GetActorID returns the actor set by Actor
func GetActorID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(actorIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
