package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/school-backend/internal/http/response"
	"github.com/yungbote/school-backend/internal/services/catalog"
)

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// GET /api/catalog?search=&tag=
func (h *CatalogHandler) ListCatalog(c *gin.Context) {
	courses := h.catalog.List(c.Query("search"), c.Query("tag"))
	response.RespondOK(c, gin.H{"courses": courses, "total": len(courses)})
}

// GET /api/catalog/:id
func (h *CatalogHandler) GetCatalogCourse(c *gin.Context) {
	course, ok := h.catalog.Get(c.Param("id"))
	if !ok {
		respondErr(c, catalog.ErrNotFound, "catalog_course_not_found")
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// POST /api/catalog/:id/start
func (h *CatalogHandler) StartCourse(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	course, err := h.catalog.Start(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondErr(c, err, "start_course_failed")
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}
