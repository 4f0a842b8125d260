package controllers

import (
	"github.com/gin-gonic/gin"
	"hairsim/internal/services"
	"hairsim/pkg/utils"
)

type CatalogController struct {
	prompts *services.PromptBuilder
}

func NewCatalogController(prompts *services.PromptBuilder) *CatalogController {
	return &CatalogController{prompts: prompts}
}

func (cc *CatalogController) GetCatalog(c *gin.Context) {
	utils.RespondSuccess(c, cc.prompts.Catalog(), "Catalog fetched successfully")
}
