package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/bunledge/internal/authkit"
	"github.com/tyemirov/bunledge/internal/store"
	"github.com/tyemirov/bunledge/internal/timeback"
)

type activityCreateRequest struct {
	ExternalID string `json:"activity_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	CourseCode string `json:"course_code" binding:"required"`
}

func registerActivityRoutes(api gin.IRouter, dependencies Dependencies) {
	activities := api.Group("/activities")

	activities.GET("", func(contextGin *gin.Context) {
		records, listErr := dependencies.Activities.List(contextGin.Request.Context())
		if listErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.activities.list", listErr)
			return
		}
		contextGin.JSON(http.StatusOK, records)
	})

	activities.GET("/:activity_id", func(contextGin *gin.Context) {
		activityID, ok := pathID(contextGin, "activity_id")
		if !ok {
			return
		}
		record, getErr := dependencies.Activities.Get(contextGin.Request.Context(), activityID)
		if getErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.activities.get", getErr)
			return
		}
		contextGin.JSON(http.StatusOK, record)
	})

	activities.POST("", func(contextGin *gin.Context) {
		var inbound activityCreateRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		record, createErr := dependencies.Activities.Create(
			contextGin.Request.Context(), inbound.ExternalID, inbound.Name, inbound.CourseCode)
		if createErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.activities.create", createErr)
			return
		}
		contextGin.JSON(http.StatusCreated, record)
	})

	activities.GET("/progress/me", dependencies.RequireUser, func(contextGin *gin.Context) {
		account, found := authkit.CurrentAccount(contextGin)
		if !found {
			contextGin.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		records, listErr := dependencies.Progress.ListForUser(contextGin.Request.Context(), account.ID)
		if listErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.progress.list", listErr)
			return
		}
		contextGin.JSON(http.StatusOK, records)
	})

	activities.GET("/:activity_id/progress", dependencies.RequireUser, func(contextGin *gin.Context) {
		account, activityID, ok := progressRouteContext(contextGin)
		if !ok {
			return
		}
		record, getErr := dependencies.Progress.Get(contextGin.Request.Context(), account.ID, activityID)
		if getErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.progress.get", getErr)
			return
		}
		contextGin.JSON(http.StatusOK, record)
	})

	activities.POST("/:activity_id/progress", dependencies.RequireUser, handleStartActivity(dependencies))
	activities.PUT("/:activity_id/progress", dependencies.RequireUser, handleUpdateProgress(dependencies))

	activities.DELETE("/:activity_id/progress", dependencies.RequireUser, func(contextGin *gin.Context) {
		account, activityID, ok := progressRouteContext(contextGin)
		if !ok {
			return
		}
		if resetErr := dependencies.Progress.Reset(contextGin.Request.Context(), account.ID, activityID); resetErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.progress.reset", resetErr)
			return
		}
		contextGin.Status(http.StatusNoContent)
	})
}

// handleStartActivity creates a progress record. What a duplicate start does
// is a deployment choice: conflict answers 409, resume hands back the
// existing record.
func handleStartActivity(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		account, activityID, ok := progressRouteContext(contextGin)
		if !ok {
			return
		}
		requestContext := contextGin.Request.Context()

		if _, activityErr := dependencies.Activities.Get(requestContext, activityID); activityErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.progress.start", activityErr)
			return
		}

		record, startErr := dependencies.Progress.Start(requestContext, account.ID, activityID)
		if startErr == nil {
			contextGin.JSON(http.StatusCreated, record)
			return
		}
		if !errors.Is(startErr, store.ErrConflict) {
			respondStoreError(contextGin, dependencies.Logger, "api.progress.start", startErr)
			return
		}

		if dependencies.StartPolicy == StartPolicyResume {
			existing, getErr := dependencies.Progress.Get(requestContext, account.ID, activityID)
			if getErr != nil {
				respondStoreError(contextGin, dependencies.Logger, "api.progress.start", getErr)
				return
			}
			contextGin.JSON(http.StatusOK, existing)
			return
		}
		contextGin.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "progress_exists"})
	}
}

// handleUpdateProgress applies a partial patch. When the patch is the
// transition into completed, a completion event is reported after the update
// is persisted; reporting failures never fail the request.
func handleUpdateProgress(dependencies Dependencies) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		account, activityID, ok := progressRouteContext(contextGin)
		if !ok {
			return
		}
		var patch store.ProgressPatch
		if bindErr := contextGin.ShouldBindJSON(&patch); bindErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		if patch.Status != nil && !patch.Status.Valid() {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
			return
		}

		record, completedNow, updateErr := dependencies.Progress.ApplyUpdate(
			contextGin.Request.Context(), account.ID, activityID, patch)
		if updateErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.progress.update", updateErr)
			return
		}

		if completedNow {
			if dependencies.Metrics != nil {
				dependencies.Metrics.Increment("progress.completed")
			}
			reportCompletion(dependencies, account, activityID, record)
		}

		contextGin.JSON(http.StatusOK, record)
	}
}

// reportCompletion emits the completion event on a detached context so slow
// or failing analytics never hold up the response.
func reportCompletion(dependencies Dependencies, account authkit.Account, activityID int64, record store.ActivityProgress) {
	lookupContext, lookupCancel := context.WithTimeout(context.Background(), dependencies.ReportTimeout)
	activity, activityErr := dependencies.Activities.Get(lookupContext, activityID)
	lookupCancel()
	if activityErr != nil {
		dependencies.Logger.Warn("completion report skipped",
			zap.String("code", "progress.report.activity_missing"),
			zap.Int64("activity_id", activityID),
			zap.Error(activityErr))
		return
	}

	event := timeback.CompletionEvent{
		UserEmail:        account.Email,
		ActivityID:       activity.ExternalID,
		ActivityName:     activity.Name,
		CourseCode:       activity.CourseCode,
		CorrectQuestions: record.CorrectQuestions,
		TotalQuestions:   record.TotalQuestions,
		MasteredUnits:    record.MasteredUnits,
		XPEarned:         record.XPEarned,
		ElapsedMS:        record.ElapsedMS,
	}
	if record.CompletedAt != nil {
		event.CompletedAt = *record.CompletedAt
	}

	go func() {
		reportContext, reportCancel := context.WithTimeout(context.Background(), dependencies.ReportTimeout)
		defer reportCancel()
		if reportErr := dependencies.Reporter.ReportCompletion(reportContext, event); reportErr != nil {
			dependencies.Logger.Warn("completion report failed",
				zap.String("code", "progress.report.failed"),
				zap.String("activity_id", activity.ExternalID),
				zap.Int64("user_id", account.ID),
				zap.Error(reportErr))
		}
	}()
}

func progressRouteContext(contextGin *gin.Context) (authkit.Account, int64, bool) {
	account, found := authkit.CurrentAccount(contextGin)
	if !found {
		contextGin.AbortWithStatus(http.StatusUnauthorized)
		return authkit.Account{}, 0, false
	}
	activityID, ok := pathID(contextGin, "activity_id")
	if !ok {
		return authkit.Account{}, 0, false
	}
	return account, activityID, true
}
