package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const greeting = "Hello world!"

func Greeting(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"greeting": greeting})
}
