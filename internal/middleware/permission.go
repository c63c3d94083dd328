package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/pkg/errors"
	"github.com/charlesng35/inventra/pkg/metrics"
	"github.com/charlesng35/inventra/pkg/response"
)

// RequireStaff rejects authenticated callers whose token lacks the staff flag.
// It must run after Auth.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserIDKey) == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !c.GetBool(CtxIsStaffKey) {
			metrics.StaffChecks.WithLabelValues("denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.StaffChecks.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
