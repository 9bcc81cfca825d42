package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/response"
	"github.com/gravadigital/campus-awards-api/internal/services"
	"github.com/gravadigital/campus-awards-api/internal/validation"
)

// CatalogHandler serves categories and candidates to voters and admins.
type CatalogHandler struct {
	categories *services.CategoryService
	candidates *services.CandidateService
	maxPhoto   int64
	log        *log.Logger
}

func NewCatalogHandler(svc *services.Services, maxPhotoSize int64) *CatalogHandler {
	return &CatalogHandler{
		categories: svc.Categories,
		candidates: svc.Candidates,
		maxPhoto:   maxPhotoSize,
		log:        logger.Handler("catalog_handler"),
	}
}

// ListCategories handles GET /api/categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	list, err := h.categories.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "Failed to list categories", err)
		return
	}
	response.OK(c, list)
}

// GetCategory handles GET /api/categories/:id
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cat, err := h.categories.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, "Failed to get category", err)
		return
	}
	response.OK(c, cat)
}

// ListCandidates handles GET /api/categories/:id/candidates
func (h *CatalogHandler) ListCandidates(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.candidates.ListByCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, "Failed to list candidates", err)
		return
	}
	response.OK(c, list)
}

// CreateCategory handles POST /api/admin/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req services.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	cat, err := h.categories.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, "Failed to create category", err)
		return
	}
	response.Created(c, "Category created successfully", cat)
}

// UpdateCategory handles PUT /api/admin/categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	cat, err := h.categories.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, "Failed to update category", err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Category updated successfully", cat)
}

// DeleteCategory handles DELETE /api/admin/categories/:id
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, "Failed to delete category", err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Category deleted successfully", nil)
}

// ListAllCandidates handles GET /api/admin/candidates
func (h *CatalogHandler) ListAllCandidates(c *gin.Context) {
	list, err := h.candidates.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "Failed to list candidates", err)
		return
	}
	response.OK(c, list)
}

// CreateCandidate handles POST /api/admin/candidates
func (h *CatalogHandler) CreateCandidate(c *gin.Context) {
	var req services.CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	cand, err := h.candidates.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, "Failed to create candidate", err)
		return
	}
	response.Created(c, "Candidate created successfully", cand)
}

// UpdateCandidate handles PUT /api/admin/candidates/:id
func (h *CatalogHandler) UpdateCandidate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	cand, err := h.candidates.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, "Failed to update candidate", err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Candidate updated successfully", cand)
}

// DeleteCandidate handles DELETE /api/admin/candidates/:id
func (h *CatalogHandler) DeleteCandidate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.candidates.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, "Failed to delete candidate", err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Candidate deleted successfully", nil)
}

// UploadCandidatePhoto handles POST /api/admin/candidates/:id/photo
func (h *CatalogHandler) UploadCandidatePhoto(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if h.maxPhoto > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxPhoto+1<<20)
	}
	file, err := c.FormFile("photo")
	if err != nil {
		response.BadRequestError(c, "photo file is required")
		return
	}
	if h.maxPhoto > 0 && file.Size > h.maxPhoto {
		response.BadRequestError(c, "photo exceeds the maximum size")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, h.log, "Failed to open uploaded photo", err)
		return
	}
	defer src.Close()

	cand, err := h.candidates.UploadPhoto(c.Request.Context(), id, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, h.log, "Failed to upload photo", err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Photo uploaded successfully", cand)
}

func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if err := validation.ValidateDocumentID(id, name); err != nil {
		response.BadRequestError(c, err.Error())
		return "", false
	}
	return id, true
}
