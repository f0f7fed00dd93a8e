package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/security"
	"github.com/JadeOpenClawAI/ai-chat-sub001/pkg/api"
)

// ErrorHandler renders the last handler error as an RFC 9457 problem.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		problem := ToProblem(c.Errors.Last().Err)
		problem.Instance = GetRequestID(c)

		if problem.Log != nil {
			log := logger.Warn
			if problem.Status >= http.StatusInternalServerError {
				log = logger.Error
			}
			log("request failed",
				zap.Int("status", problem.Status),
				zap.String("request_id", problem.Instance),
				zap.String("error", security.Redact(problem.Log.Error())),
			)
		}

		// RFC 9457 dictates the json is at the root
		c.Header("Content-Type", "application/problem+json")
		c.JSON(problem.Status, problem)
		c.Abort()
	}
}

// ToProblem maps service errors onto problems. Upstream details are
// redacted, and anything unclassified becomes a generic 500.
func ToProblem(err error) *api.Problem {
	var problem *api.Problem
	if errors.As(err, &problem) {
		return problem
	}

	var de *domain.Error
	if errors.As(err, &de) {
		return api.NewProblem(de.Status(), "", PublicMessage(de), api.WithLog(de.Err))
	}

	return api.NewProblem(
		http.StatusInternalServerError,
		"Internal Server Error",
		"An unexpected error occurred.",
		api.WithLog(err),
	)
}

// PublicMessage is the text of de that may be shown to a client. Messages
// built by the services are safe as is; provider text is scrubbed again.
func PublicMessage(de *domain.Error) string {
	if de.Kind == domain.KindUpstream {
		return security.Redact(de.Message)
	}
	return de.Message
}
