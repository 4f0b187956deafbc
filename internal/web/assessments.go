package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tyemirov/bunledge/internal/store"
)

type assessmentCreateRequest struct {
	Score      *float64 `json:"score" binding:"required,gte=0,lte=100"`
	Feedback   *string  `json:"feedback"`
	UserID     *int64   `json:"user_id" binding:"required"`
	ExerciseID *int64   `json:"exercise_id" binding:"required"`
}

type assessmentUpdateRequest struct {
	Score    *float64 `json:"score" binding:"required,gte=0,lte=100"`
	Feedback *string  `json:"feedback"`
}

func registerAssessmentRoutes(api gin.IRouter, dependencies Dependencies) {
	assessments := api.Group("/assessments")

	assessments.GET("", func(contextGin *gin.Context) {
		filter, filterOK := assessmentFilterFromQuery(contextGin)
		if !filterOK {
			return
		}
		records, listErr := dependencies.Assessments.List(contextGin.Request.Context(), filter)
		if listErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.assessments.list", listErr)
			return
		}
		contextGin.JSON(http.StatusOK, records)
	})

	assessments.GET("/:assessment_id", func(contextGin *gin.Context) {
		assessmentID, ok := pathID(contextGin, "assessment_id")
		if !ok {
			return
		}
		record, getErr := dependencies.Assessments.Get(contextGin.Request.Context(), assessmentID)
		if getErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.assessments.get", getErr)
			return
		}
		contextGin.JSON(http.StatusOK, record)
	})

	assessments.POST("", func(contextGin *gin.Context) {
		var inbound assessmentCreateRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		record, createErr := dependencies.Assessments.Create(
			contextGin.Request.Context(), *inbound.UserID, *inbound.ExerciseID, *inbound.Score, inbound.Feedback)
		if createErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.assessments.create", createErr)
			return
		}
		contextGin.JSON(http.StatusCreated, record)
	})

	assessments.PUT("/:assessment_id", func(contextGin *gin.Context) {
		assessmentID, ok := pathID(contextGin, "assessment_id")
		if !ok {
			return
		}
		var inbound assessmentUpdateRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		record, updateErr := dependencies.Assessments.Update(
			contextGin.Request.Context(), assessmentID, *inbound.Score, inbound.Feedback)
		if updateErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.assessments.update", updateErr)
			return
		}
		contextGin.JSON(http.StatusOK, record)
	})

	assessments.DELETE("/:assessment_id", func(contextGin *gin.Context) {
		assessmentID, ok := pathID(contextGin, "assessment_id")
		if !ok {
			return
		}
		if deleteErr := dependencies.Assessments.Delete(contextGin.Request.Context(), assessmentID); deleteErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.assessments.delete", deleteErr)
			return
		}
		contextGin.Status(http.StatusNoContent)
	})
}

func assessmentFilterFromQuery(contextGin *gin.Context) (store.AssessmentFilter, bool) {
	filter := store.AssessmentFilter{}
	if rawUserID := contextGin.Query("user_id"); rawUserID != "" {
		userID, parseErr := strconv.ParseInt(rawUserID, 10, 64)
		if parseErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_user_id"})
			return store.AssessmentFilter{}, false
		}
		filter.UserID = &userID
	}
	if rawExerciseID := contextGin.Query("exercise_id"); rawExerciseID != "" {
		exerciseID, parseErr := strconv.ParseInt(rawExerciseID, 10, 64)
		if parseErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_exercise_id"})
			return store.AssessmentFilter{}, false
		}
		filter.ExerciseID = &exerciseID
	}
	return filter, true
}
