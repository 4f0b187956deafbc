package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type exerciseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func registerExerciseRoutes(api gin.IRouter, dependencies Dependencies) {
	exercises := api.Group("/exercises")

	exercises.GET("", func(contextGin *gin.Context) {
		records, listErr := dependencies.Exercises.List(contextGin.Request.Context())
		if listErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.exercises.list", listErr)
			return
		}
		contextGin.JSON(http.StatusOK, records)
	})

	exercises.GET("/:exercise_id", func(contextGin *gin.Context) {
		exerciseID, ok := pathID(contextGin, "exercise_id")
		if !ok {
			return
		}
		record, getErr := dependencies.Exercises.Get(contextGin.Request.Context(), exerciseID)
		if getErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.exercises.get", getErr)
			return
		}
		contextGin.JSON(http.StatusOK, record)
	})

	exercises.POST("", func(contextGin *gin.Context) {
		var inbound exerciseRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		record, createErr := dependencies.Exercises.Create(contextGin.Request.Context(), inbound.Title, inbound.Description)
		if createErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.exercises.create", createErr)
			return
		}
		contextGin.JSON(http.StatusCreated, record)
	})

	exercises.PUT("/:exercise_id", func(contextGin *gin.Context) {
		exerciseID, ok := pathID(contextGin, "exercise_id")
		if !ok {
			return
		}
		var inbound exerciseRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		record, updateErr := dependencies.Exercises.Update(contextGin.Request.Context(), exerciseID, inbound.Title, inbound.Description)
		if updateErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.exercises.update", updateErr)
			return
		}
		contextGin.JSON(http.StatusOK, record)
	})

	exercises.DELETE("/:exercise_id", func(contextGin *gin.Context) {
		exerciseID, ok := pathID(contextGin, "exercise_id")
		if !ok {
			return
		}
		if deleteErr := dependencies.Exercises.Delete(contextGin.Request.Context(), exerciseID); deleteErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.exercises.delete", deleteErr)
			return
		}
		contextGin.Status(http.StatusNoContent)
	})
}
