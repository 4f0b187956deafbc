package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tyemirov/bunledge/internal/authkit"
)

type userCreateRequest struct {
	Subject string  `json:"auth0_sub" binding:"required"`
	Email   *string `json:"email"`
	Name    *string `json:"name"`
}

type userUpdateRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

func registerUserRoutes(api gin.IRouter, dependencies Dependencies) {
	users := api.Group("/users")

	users.GET("/me", dependencies.RequireUser, func(contextGin *gin.Context) {
		account, found := authkit.CurrentAccount(contextGin)
		if !found {
			contextGin.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		record, getErr := dependencies.Users.Get(contextGin.Request.Context(), account.ID)
		if getErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.users.me", getErr)
			return
		}
		contextGin.JSON(http.StatusOK, record)
	})

	users.GET("", func(contextGin *gin.Context) {
		records, listErr := dependencies.Users.List(contextGin.Request.Context())
		if listErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.users.list", listErr)
			return
		}
		contextGin.JSON(http.StatusOK, records)
	})

	users.GET("/:user_id", func(contextGin *gin.Context) {
		userID, ok := pathID(contextGin, "user_id")
		if !ok {
			return
		}
		record, getErr := dependencies.Users.Get(contextGin.Request.Context(), userID)
		if getErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.users.get", getErr)
			return
		}
		contextGin.JSON(http.StatusOK, record)
	})

	users.POST("", func(contextGin *gin.Context) {
		var inbound userCreateRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		record, createErr := dependencies.Users.Create(contextGin.Request.Context(), inbound.Subject, inbound.Email, inbound.Name)
		if createErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.users.create", createErr)
			return
		}
		contextGin.JSON(http.StatusCreated, record)
	})

	users.PUT("/:user_id", func(contextGin *gin.Context) {
		userID, ok := pathID(contextGin, "user_id")
		if !ok {
			return
		}
		var inbound userUpdateRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		record, updateErr := dependencies.Users.Update(contextGin.Request.Context(), userID, inbound.Email, inbound.Name)
		if updateErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.users.update", updateErr)
			return
		}
		contextGin.JSON(http.StatusOK, record)
	})

	users.DELETE("/:user_id", func(contextGin *gin.Context) {
		userID, ok := pathID(contextGin, "user_id")
		if !ok {
			return
		}
		if deleteErr := dependencies.Users.Delete(contextGin.Request.Context(), userID); deleteErr != nil {
			respondStoreError(contextGin, dependencies.Logger, "api.users.delete", deleteErr)
			return
		}
		contextGin.Status(http.StatusNoContent)
	})
}
