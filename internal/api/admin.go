package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service"
	"storefront/internal/store"
)

func (h *Handler) setupAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/dashboard", h.adminDashboard)

	admin.GET("/products", h.adminListProducts)
	admin.POST("/products", h.adminCreateProduct)
	admin.GET("/products/:id", h.adminGetProduct)
	admin.PUT("/products/:id", h.adminUpdateProduct)
	admin.DELETE("/products/:id", h.adminDeleteProduct)

	admin.GET("/categories", h.adminListCategories)
	admin.POST("/categories", h.adminCreateCategory)
	admin.GET("/categories/:id", h.adminGetCategory)
	admin.PUT("/categories/:id", h.adminUpdateCategory)
	admin.DELETE("/categories/:id", h.adminDeleteCategory)

	admin.GET("/orders", h.adminListOrders)
	admin.GET("/orders/:id", h.adminGetOrder)
	admin.PUT("/orders/:id/status", h.adminUpdateOrderStatus)

	admin.GET("/users", h.adminListUsers)
	admin.GET("/users/:id", h.adminGetUser)
	admin.POST("/users/:id/toggle-active", h.adminToggleUserActive)

	admin.GET("/faqs", h.adminListFAQs)
	admin.POST("/faqs", h.adminCreateFAQ)
	admin.PUT("/faqs/:id", h.adminUpdateFAQ)
	admin.DELETE("/faqs/:id", h.adminDeleteFAQ)
	admin.POST("/faqs/:id/toggle-published", h.adminToggleFAQPublished)
}

func (h *Handler) adminDashboard(c *gin.Context) {
	dashboard, err := h.svc.Admin.Dashboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *Handler) adminListProducts(c *gin.Context) {
	var filter store.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.svc.Admin.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) adminCreateProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	product, err := h.svc.Admin.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) adminGetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.svc.Admin.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) adminUpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	product, err := h.svc.Admin.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) adminDeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Admin.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminListCategories(c *gin.Context) {
	categories, err := h.svc.Admin.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) adminCreateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	category, err := h.svc.Admin.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) adminGetCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var page store.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		bindFailed(c, err)
		return
	}

	detail, err := h.svc.Admin.GetCategory(c.Request.Context(), id, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) adminUpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	category, err := h.svc.Admin.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) adminDeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Admin.DeleteCategory(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminListOrders(c *gin.Context) {
	var filter store.OrderFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.svc.Admin.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) adminGetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.Admin.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) adminUpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	order, err := h.svc.Admin.UpdateOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) adminListUsers(c *gin.Context) {
	var page store.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		bindFailed(c, err)
		return
	}

	users, err := h.svc.Admin.ListUsers(c.Request.Context(), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) adminGetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.svc.Admin.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) adminToggleUserActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	active, err := h.svc.Admin.ToggleUserActive(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": active})
}

func (h *Handler) adminListFAQs(c *gin.Context) {
	var filter store.FAQFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindFailed(c, err)
		return
	}

	faqs, err := h.svc.Admin.ListFAQs(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, faqs)
}

func (h *Handler) adminCreateFAQ(c *gin.Context) {
	var req service.FAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	faq, err := h.svc.Admin.CreateFAQ(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, faq)
}

func (h *Handler) adminUpdateFAQ(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.FAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	faq, err := h.svc.Admin.UpdateFAQ(c.Request.Context(), id, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, faq)
}

func (h *Handler) adminDeleteFAQ(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Admin.DeleteFAQ(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminToggleFAQPublished(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	published, err := h.svc.Admin.ToggleFAQPublished(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_published": published})
}
