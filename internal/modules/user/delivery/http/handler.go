package handler

import (
	"net/http"

	userDto "anoa.com/shuttleapi/internal/modules/user/dto"
	user "anoa.com/shuttleapi/internal/modules/user/service"
	"anoa.com/shuttleapi/pkg/dto"
	"anoa.com/shuttleapi/pkg/response"
	"anoa.com/shuttleapi/pkg/validator"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService user.UserService
}

func NewUserHandler(userService user.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) UploadImage(c *gin.Context) {
	requester, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
		return
	}
	defer file.Close()

	url, err := h.userService.UploadImage(c.Request.Context(), requester.Handle, dto.ImageFile{
		Reader:      file,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, userDto.ImageUploadResponse{Message: "image uploaded successfully", ImageURL: url})
}

func (h *UserHandler) AddUserDetails(c *gin.Context) {
	requester, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req userDto.UserDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.userService.AddUserDetails(c.Request.Context(), requester.Handle, req); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "details added successfully"})
}

func (h *UserHandler) GetAuthenticatedUser(c *gin.Context) {
	requester, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.userService.GetAuthenticatedUser(c.Request.Context(), requester.Handle)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *UserHandler) GetUserDetails(c *gin.Context) {
	res, err := h.userService.GetUserDetails(c.Request.Context(), c.Param("handle"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
