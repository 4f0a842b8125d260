package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"hairsim/internal/models/domain_models"
	"hairsim/internal/models/request_models"
	"hairsim/internal/models/response_models"
	"hairsim/internal/services"
	"hairsim/pkg/objectstore"
	"hairsim/pkg/utils"
)

type GenerationController struct {
	generation services.GenerationServiceInterface
	objects    objectstore.Store
	log        *zap.Logger
}

func NewGenerationController(generation services.GenerationServiceInterface, objects objectstore.Store, log *zap.Logger) *GenerationController {
	return &GenerationController{
		generation: generation,
		objects:    objects,
		log:        log.Named("generation_controller"),
	}
}

// GenerateReport godoc
// @Summary Generate the hair-loss assessment report for a client
// @Tags Generation
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param request body request_models.GenerateRequest false "Generation options"
// @Success 200 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Security BearerAuth
// @Router /clients/{id}/report [post]
func (g *GenerationController) GenerateReport(c *gin.Context) {
	g.generate(c, services.KindReport, "Report generated successfully")
}

// GenerateImage godoc
// @Summary Generate the post-transplant simulation image for a client
// @Description Uses the hairline prompt stored with the client's report.
// @Tags Generation
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param request body request_models.GenerateRequest false "Generation options"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Security BearerAuth
// @Router /clients/{id}/image [post]
func (g *GenerationController) GenerateImage(c *gin.Context) {
	g.generate(c, services.KindImage, "Image generated successfully")
}

// GenerateReportAndImage godoc
// @Summary Generate the report and then the simulation image for a client
// @Description The balance must cover both services before the report is generated.
// @Description When the image fails after the report was stored, data.partial holds the report.
// @Tags Generation
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param request body request_models.GenerateRequest false "Generation options"
// @Success 200 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Security BearerAuth
// @Router /clients/{id}/report-and-image [post]
func (g *GenerationController) GenerateReportAndImage(c *gin.Context) {
	g.generate(c, services.KindReportAndImage, "Report and image generated successfully")
}

func (g *GenerationController) generate(c *gin.Context, kind services.GenerationKind, message string) {
	var request request_models.GenerateRequest
	// an empty body means default options
	if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := g.generation.Generate(c.Request.Context(), services.GenerationRequest{
		AccountID:  c.GetString("account_id"),
		ClientID:   c.Param("id"),
		Kind:       kind,
		AutoSelect: request.AutoSelect,
		Adjustment: domain_models.HairlineAdjustment(request.Adjustment),
	})
	if err != nil {
		var genErr *services.GenerationError
		if errors.As(err, &genErr) && genErr.Partial != nil {
			utils.HandleServiceErrorWithPartial(c, err, g.toResponse(genErr.Partial))
			return
		}
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, g.toResponse(result), message)
}

func (g *GenerationController) toResponse(result *services.GenerationResult) response_models.GenerationResponse {
	resp := response_models.GenerationResponse{
		ClientID: result.ClientID,
		Kind:     string(result.Kind),
		Status:   string(result.Status),
		Report:   result.Report,
		Charges:  make([]response_models.ChargeResponse, 0, len(result.Charges)),
		Stages:   make([]string, 0, len(result.Stages)),
	}
	if result.GeneratedImageRef != "" {
		resp.GeneratedImageURL = g.objects.URL(result.GeneratedImageRef)
	}
	for _, ch := range result.Charges {
		out := response_models.ChargeResponse{
			ServiceType: string(ch.ServiceType),
			Amount:      ch.Amount,
			Charged:     ch.Charged,
		}
		if ch.Charged {
			balance := ch.BalanceAfter
			out.BalanceAfter = &balance
		}
		if ch.Err != nil {
			out.ChargeFailed = true
			out.Error = ch.Err.Error()
		}
		resp.Charges = append(resp.Charges, out)
	}
	for _, s := range result.Stages {
		resp.Stages = append(resp.Stages, string(s))
	}
	return resp
}
