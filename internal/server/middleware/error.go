package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopline/concierge/pkg/api"
	"go.uber.org/zap"
)

// ErrorHandler serializes errors attached by handlers. Problems render as
// RFC 9457 bodies at the root; anything else collapses to a plain 500.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if problem, ok := err.(*api.Problem); ok {
			if problem.Log != nil {
				logger.Error("request failed",
					zap.Int("status", problem.Status),
					zap.String("title", problem.Title),
					zap.Error(problem.Log),
				)
			}

			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		logger.Error("unhandled error", zap.Error(err))

		c.JSON(http.StatusInternalServerError, api.NewProblem(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}
