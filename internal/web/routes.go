package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/bunledge/internal/authkit"
	"github.com/tyemirov/bunledge/internal/store"
	"github.com/tyemirov/bunledge/internal/timeback"
)

// StartPolicy decides what starting an activity does when a progress record
// already exists for the (user, activity) pair.
type StartPolicy string

const (
	// StartPolicyConflict answers 409 on a duplicate start.
	StartPolicyConflict StartPolicy = "conflict"
	// StartPolicyResume answers 200 with the existing record.
	StartPolicyResume StartPolicy = "resume"
)

// Valid reports whether the policy is a known value.
func (policy StartPolicy) Valid() bool {
	return policy == StartPolicyConflict || policy == StartPolicyResume
}

// Dependencies carries the collaborators the HTTP surface is built from.
type Dependencies struct {
	Logger        *zap.Logger
	Metrics       authkit.MetricsRecorder
	Users         *store.Users
	Activities    *store.Activities
	Progress      *store.Progress
	Exercises     *store.Exercises
	Assessments   *store.Assessments
	Reporter      timeback.Reporter
	RequireUser   gin.HandlerFunc
	StartPolicy   StartPolicy
	ReportTimeout time.Duration
}

// RegisterRoutes mounts the full API surface under /api.
func RegisterRoutes(router gin.IRouter, dependencies Dependencies) {
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Reporter == nil {
		dependencies.Reporter = timeback.NopReporter{}
	}
	if !dependencies.StartPolicy.Valid() {
		dependencies.StartPolicy = StartPolicyConflict
	}
	if dependencies.ReportTimeout <= 0 {
		dependencies.ReportTimeout = 10 * time.Second
	}

	api := router.Group("/api")
	api.GET("/health", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	registerUserRoutes(api, dependencies)
	registerExerciseRoutes(api, dependencies)
	registerAssessmentRoutes(api, dependencies)
	registerActivityRoutes(api, dependencies)
}

// pathID parses a numeric path parameter; a non-numeric value aborts with 400.
func pathID(contextGin *gin.Context, name string) (int64, bool) {
	value, parseErr := strconv.ParseInt(contextGin.Param(name), 10, 64)
	if parseErr != nil || value <= 0 {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return value, true
}

// respondStoreError maps store failures to status codes. Anything that is not
// a not-found or conflict is a server fault and gets logged with its code.
func respondStoreError(contextGin *gin.Context, logger *zap.Logger, code string, storeErr error) {
	switch {
	case errors.Is(storeErr, store.ErrNotFound):
		contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(storeErr, store.ErrConflict):
		contextGin.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		logger.Error("store operation failed",
			zap.String("code", code),
			zap.Error(storeErr))
		contextGin.AbortWithStatus(http.StatusInternalServerError)
	}
}
