// internal/handlers/common.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/i18n"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/utils"
)

// respondError writes the envelope for a service error.
func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Unhandled error")
		utils.InternalErrorResponse(c, err)
		return
	}

	switch svcErr.Kind {
	case services.KindValidation:
		utils.BadRequestResponse(c, svcErr.Message, utils.DebugDetails(svcErr.Err))
	case services.KindInvalidTransition:
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_TRANSITION", svcErr.Message, nil)
	case services.KindUnauthenticated:
		utils.UnauthorizedResponse(c, svcErr.Message)
	case services.KindForbidden:
		utils.ForbiddenResponse(c, svcErr.Message)
	case services.KindNotFound:
		utils.NotFoundResponse(c, svcErr.Message)
	case services.KindConflict:
		utils.ConflictResponse(c, svcErr.Message)
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Unexpected service error")
		utils.InternalErrorResponse(c, err)
	}
}

// principal returns the authenticated caller set by the auth middleware.
func principal(c *gin.Context) (services.Principal, bool) {
	userIDStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return services.Principal{}, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return services.Principal{}, false
	}
	role, _ := utils.GetRoleFromContext(c)

	return services.Principal{ID: userID, Role: models.Role(role)}, true
}

// pathID parses the uuid path parameter name.
func pathID(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyInvalidID, resource), nil)
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the request body. An empty body leaves req untouched.
func bindJSON(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), utils.DebugDetails(err))
		return false
	}
	return true
}

// queryUUID parses an optional uuid filter. A malformed value is answered
// with 400 and ok is false.
func queryUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, key), nil)
		return nil, false
	}
	return &id, true
}
