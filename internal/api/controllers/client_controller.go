package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"hairsim/internal/models/request_models"
	"hairsim/internal/models/response_models"
	"hairsim/internal/services"
	"hairsim/pkg/objectstore"
	"hairsim/pkg/utils"
)

const maxUploadBytes = 10 << 20

type ClientController struct {
	clientService services.ClientServiceInterface
	objects       objectstore.Store
}

func NewClientController(clientService services.ClientServiceInterface, objects objectstore.Store) *ClientController {
	return &ClientController{
		clientService: clientService,
		objects:       objects,
	}
}

// CreateClient godoc
// @Summary Create a draft client record from the intake form
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body request_models.CreateClientRequest true "Client intake"
// @Success 201 {object} utils.APIResponse
// @Security BearerAuth
// @Router /clients [post]
func (cc *ClientController) CreateClient(c *gin.Context) {
	var request request_models.CreateClientRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	record, err := cc.clientService.CreateClient(c.Request.Context(), c.GetString("account_id"), request.Intake())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondCreated(c, response_models.NewClientResponse(record, cc.objects.URL), "Client created successfully")
}

func (cc *ClientController) ListClients(c *gin.Context) {
	records, err := cc.clientService.ListClients(c.Request.Context(), c.GetString("account_id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	out := response_models.ClientListResponse{
		Clients: make([]response_models.ClientResponse, 0, len(records)),
		Total:   len(records),
	}
	for i := range records {
		out.Clients = append(out.Clients, response_models.NewClientResponse(&records[i], cc.objects.URL))
	}
	utils.RespondSuccess(c, out, "Clients fetched successfully")
}

func (cc *ClientController) GetClient(c *gin.Context) {
	clientID := c.Param("id")
	if clientID == "" {
		utils.RespondError(c, http.StatusBadRequest, "Client ID is required")
		return
	}

	record, err := cc.clientService.GetClient(c.Request.Context(), c.GetString("account_id"), clientID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewClientResponse(record, cc.objects.URL), "Client fetched successfully")
}

// UploadFrontImage godoc
// @Summary Upload the client's front photo
// @Tags Clients
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Client ID"
// @Param image formData file true "Front photo (JPEG, PNG or WebP)"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /clients/{id}/front-image [post]
func (cc *ClientController) UploadFrontImage(c *gin.Context) {
	clientID := c.Param("id")

	fileHeader, err := c.FormFile("image")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Image file is required")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		utils.RespondError(c, http.StatusRequestEntityTooLarge, "Image must be 10MB or smaller")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Could not read image file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Could not read image file")
		return
	}
	if len(data) > maxUploadBytes {
		utils.RespondError(c, http.StatusRequestEntityTooLarge, "Image must be 10MB or smaller")
		return
	}

	record, err := cc.clientService.UploadFrontImage(c.Request.Context(), c.GetString("account_id"), clientID, data)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewClientResponse(record, cc.objects.URL), "Front image uploaded successfully")
}

func (cc *ClientController) SaveSelection(c *gin.Context) {
	var request request_models.SaveSelectionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "hairline_id and hairstyle_id are required")
		return
	}

	record, err := cc.clientService.SaveSelection(c.Request.Context(), c.GetString("account_id"), c.Param("id"), request.HairlineID, request.HairstyleID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewClientResponse(record, cc.objects.URL), "Selection saved successfully")
}
